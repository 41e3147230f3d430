// Package cli wires configuration, the registry API client and the
// container engine into the application object the commands run against.
package cli

import (
	"fmt"

	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/bsamaha/docker-registry/internal/engine"
	"github.com/bsamaha/docker-registry/internal/registry"
)

type App struct {
	Config *common.Config

	client *registry.Client
	engine *engine.Engine
}

// NewClientApp initializes a new App with configuration.
func NewClientApp(buildConfig *common.BuildConfig) (*App, error) {
	// Get global config singleton instead of loading the config again
	config, err := common.GetGlobalConfig(buildConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a := &App{
		Config: config,
	}

	return a, nil
}

// Registry returns the registry API client, creating it on first use.
// Commands that never touch the registry pay no setup cost.
func (a *App) Registry() (*registry.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	client, err := registry.NewClient(&a.Config.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry client: %w", err)
	}

	a.client = client
	return a.client, nil
}

// Engine returns the container engine handle, creating it on first use.
func (a *App) Engine() (*engine.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	eng, err := engine.NewEngine(a.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	a.engine = eng
	return a.engine, nil
}

// Close releases the engine connection if one was opened.
func (a *App) Close() {
	if a.engine != nil {
		_ = a.engine.Close()
		a.engine = nil
	}
}
