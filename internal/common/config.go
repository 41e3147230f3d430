package common

import (
	"fmt"

	"github.com/bsamaha/docker-registry/pkg/logger"
)

// Initialize package-level logging configuration
func init() {
	logger.GetLogger().ConfigureFromEnv()
}

// Config is the process-wide configuration: populated once at startup,
// immutable afterwards, and passed explicitly to every component.
type Config struct {
	General  GeneralConfig  `yaml:"General"`
	Registry RegistryConfig `yaml:"Registry"`
	Engine   EngineConfig   `yaml:"Engine"`
	GC       GCConfig       `yaml:"GC"`
	Storage  StorageConfig  `yaml:"Storage"`
	Build    BuildConfig    `yaml:"-"`
}

type BuildConfig struct {
	RunEnv       string `yaml:"-"` // come from env
	BuildVersion string `yaml:"-"` // come from build ldflags
	BuildCommit  string `yaml:"-"` // come from build ldflags
	BuildDate    string `yaml:"-"` // come from build ldflags
}

type GeneralConfig struct {
	LogLevel string `yaml:"logLevel"`
}

// RegistryConfig describes how to reach the registry HTTP API.
type RegistryConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Scheme string `yaml:"scheme"`
	CACert string `yaml:"caCert"` // trust anchor for the registry's self-signed cert
	// Insecure disables certificate verification. Never the default; meant
	// for throwaway dev registries only.
	Insecure    bool `yaml:"insecure"`
	RequestRate int  `yaml:"requestRate"` // API requests per second, 0 = unlimited
}

// EngineConfig describes the container engine hosting the registry.
type EngineConfig struct {
	Sock        string `yaml:"dockersock"`
	PodmanSock  string `yaml:"podmansock"`
	Podman      bool   `yaml:"podman"`
	Container   string `yaml:"container"` // name or ID of the registry container
	StopTimeout int    `yaml:"stopTimeout"`
}

// GCConfig describes how garbage collection is invoked inside the registry
// container.
type GCConfig struct {
	Binary         string `yaml:"binary"`
	ConfigPath     string `yaml:"configPath"`
	DeleteUntagged bool   `yaml:"deleteUntagged"`
	RestartWait    int    `yaml:"restartWait"` // seconds to wait for the API after a restart
}

// StorageConfig locates the registry's on-disk layout for fallback cleanup.
// The paths under Root are an implementation detail of the distribution
// registry and may change across its versions.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// Default values
var (
	defaultLogLevel    = "info"
	defaultHost        = "localhost"
	defaultPort        = 5000
	defaultScheme      = "https"
	sock               = "/var/run/docker.sock"
	podmansock         = "/run/podman/podman.sock"
	defaultContainer   = "registry"
	defaultStopTimeout = 30 // seconds
	defaultGCBinary    = "/bin/registry"
	defaultGCConfig    = "/etc/docker/registry/config.yml"
	defaultRestartWait = 60 // seconds
	defaultStorageRoot = "/var/lib/registry/docker/registry/v2"
)

// applyDefaultsToConfig applies default values to any fields that have zero values
// Returns true if any defaults were applied
func applyDefaultsToConfig(config *Config) bool {
	defaultsApplied := false

	// Apply defaults to GeneralConfig
	if config.General.LogLevel == "" {
		config.General.LogLevel = defaultLogLevel
		logger.Debug("Applied default value for General.LogLevel", "value", defaultLogLevel)
		defaultsApplied = true
	}

	// Apply defaults to RegistryConfig
	if config.Registry.Host == "" {
		config.Registry.Host = defaultHost
		logger.Debug("Applied default value for Registry.Host", "value", defaultHost)
		defaultsApplied = true
	}
	if config.Registry.Port == 0 {
		config.Registry.Port = defaultPort
		logger.Debug("Applied default value for Registry.Port", "value", defaultPort)
		defaultsApplied = true
	}
	if config.Registry.Scheme == "" {
		config.Registry.Scheme = defaultScheme
		logger.Debug("Applied default value for Registry.Scheme", "value", defaultScheme)
		defaultsApplied = true
	}

	// Apply defaults to EngineConfig
	if config.Engine.Sock == "" {
		config.Engine.Sock = sock
		logger.Debug("Applied default value for Engine.Sock", "value", sock)
		defaultsApplied = true
	}
	if config.Engine.PodmanSock == "" {
		config.Engine.PodmanSock = podmansock
		logger.Debug("Applied default value for Engine.PodmanSock", "value", podmansock)
		defaultsApplied = true
	}
	if config.Engine.Container == "" {
		config.Engine.Container = defaultContainer
		logger.Debug("Applied default value for Engine.Container", "value", defaultContainer)
		defaultsApplied = true
	}
	if config.Engine.StopTimeout == 0 {
		config.Engine.StopTimeout = defaultStopTimeout
		logger.Debug("Applied default value for Engine.StopTimeout", "value", defaultStopTimeout)
		defaultsApplied = true
	}

	// Apply defaults to GCConfig
	if config.GC.Binary == "" {
		config.GC.Binary = defaultGCBinary
		logger.Debug("Applied default value for GC.Binary", "value", defaultGCBinary)
		defaultsApplied = true
	}
	if config.GC.ConfigPath == "" {
		config.GC.ConfigPath = defaultGCConfig
		logger.Debug("Applied default value for GC.ConfigPath", "value", defaultGCConfig)
		defaultsApplied = true
	}
	if config.GC.RestartWait == 0 {
		config.GC.RestartWait = defaultRestartWait
		logger.Debug("Applied default value for GC.RestartWait", "value", defaultRestartWait)
		defaultsApplied = true
	}

	// Apply defaults to StorageConfig
	if config.Storage.Root == "" {
		config.Storage.Root = defaultStorageRoot
		logger.Debug("Applied default value for Storage.Root", "value", defaultStorageRoot)
		defaultsApplied = true
	}

	return defaultsApplied
}

// BaseURL returns the registry API base URL, e.g. https://localhost:5000
func (c *RegistryConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// GetRunEnv returns the run environment
func (config *BuildConfig) GetRunEnv() string {
	return config.RunEnv
}

// GetVersion returns the build version
func (c *Config) GetVersion() string {
	return c.Build.BuildVersion
}
