package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/bsamaha/docker-registry/pkg/logger"
	"github.com/bsamaha/docker-registry/pkg/parser"
)

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
)

// GetGlobalConfig returns the singleton config instance, loading it on
// first use: defaults, then the config file, then environment overrides.
func GetGlobalConfig(buildInfo *BuildConfig) (*Config, error) {
	var loadErr error

	globalConfigOnce.Do(func() {
		config := &Config{}
		if buildInfo != nil {
			config.Build = *buildInfo
		}

		if _, err := config.LoadConfig(); err != nil {
			loadErr = err
			return
		}

		config.Build.RunEnv = os.Getenv("RUN_ENV")
		if config.Build.RunEnv == "" {
			config.Build.RunEnv = "prod"
		}

		globalConfig = config
	})

	if loadErr != nil {
		return nil, loadErr
	}
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration failed to load previously")
	}
	if buildInfo != nil {
		globalConfig.Build.BuildVersion = buildInfo.BuildVersion
		globalConfig.Build.BuildCommit = buildInfo.BuildCommit
		globalConfig.Build.BuildDate = buildInfo.BuildDate
	}
	return globalConfig, nil
}

func getConfigDir() (string, error) {
	// When running inside a container, keep the config next to the binary
	if isRunningInContainer() {
		return ".", nil
	}

	// Check for XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "regmaint"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user home directory: %w", err)
	}

	// For Windows, use the standard application data directory
	if runtime.GOOS == "windows" {
		return filepath.Join(homeDir, "AppData", "Local", "regmaint"), nil
	}

	// For Unix systems, use the XDG Base Directory Specification
	return filepath.Join(homeDir, ".config", "regmaint"), nil
}

func readAndUnmarshalConfig(fsys fs.FS, filePath string, config *Config) error {
	err := parser.ParseYAMLFile(fsys, filePath, config)
	if err != nil {
		return fmt.Errorf("error reading and unmarshaling configuration file: %w", err)
	}
	return nil
}

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv(config *Config, printLogs bool) {
	// General Configuration
	if val := os.Getenv("REGMAINT_LOG_LEVEL"); val != "" {
		config.General.LogLevel = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_LOG_LEVEL", "value", val)
		}
	}

	// Registry Configuration
	if val := os.Getenv("REGMAINT_REGISTRY_HOST"); val != "" {
		config.Registry.Host = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_REGISTRY_HOST", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_REGISTRY_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Registry.Port = i
			if printLogs {
				logger.Info("Using environment variable REGMAINT_REGISTRY_PORT", "value", i)
			}
		} else {
			logger.Warn("Ignoring non-numeric REGMAINT_REGISTRY_PORT", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_REGISTRY_SCHEME"); val != "" {
		config.Registry.Scheme = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_REGISTRY_SCHEME", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_REGISTRY_CA_CERT"); val != "" {
		config.Registry.CACert = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_REGISTRY_CA_CERT", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_REGISTRY_INSECURE"); val != "" {
		config.Registry.Insecure = strings.ToLower(val) == "true"
		if printLogs {
			logger.Info("Using environment variable REGMAINT_REGISTRY_INSECURE", "value", config.Registry.Insecure)
		}
	}
	if val := os.Getenv("REGMAINT_REGISTRY_REQUEST_RATE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Registry.RequestRate = i
			if printLogs {
				logger.Info("Using environment variable REGMAINT_REGISTRY_REQUEST_RATE", "value", i)
			}
		} else {
			logger.Warn("Ignoring non-numeric REGMAINT_REGISTRY_REQUEST_RATE", "value", val)
		}
	}

	// Engine Configuration
	if val := os.Getenv("REGMAINT_ENGINE_SOCK"); val != "" {
		config.Engine.Sock = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_ENGINE_SOCK", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_ENGINE_PODMANSOCK"); val != "" {
		config.Engine.PodmanSock = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_ENGINE_PODMANSOCK", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_ENGINE_PODMAN"); val != "" {
		config.Engine.Podman = strings.ToLower(val) == "true"
		if printLogs {
			logger.Info("Using environment variable REGMAINT_ENGINE_PODMAN", "value", config.Engine.Podman)
		}
	} else if !config.Engine.Podman {
		// Auto-detect Podman when the Docker socket is absent
		if !fileExists(config.Engine.Sock) && fileExists(config.Engine.PodmanSock) {
			config.Engine.Podman = true
			if printLogs {
				logger.Info("Automatically detected Podman installation",
					"using_podman", true,
					"socket", config.Engine.PodmanSock)
			}
		}
	}
	if val := os.Getenv("REGMAINT_ENGINE_CONTAINER"); val != "" {
		config.Engine.Container = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_ENGINE_CONTAINER", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_ENGINE_STOP_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.Engine.StopTimeout = i
			if printLogs {
				logger.Info("Using environment variable REGMAINT_ENGINE_STOP_TIMEOUT", "value", i)
			}
		} else {
			logger.Warn("Ignoring non-numeric REGMAINT_ENGINE_STOP_TIMEOUT", "value", val)
		}
	}

	// GC Configuration
	if val := os.Getenv("REGMAINT_GC_BINARY"); val != "" {
		config.GC.Binary = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_GC_BINARY", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_GC_CONFIG_PATH"); val != "" {
		config.GC.ConfigPath = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_GC_CONFIG_PATH", "value", val)
		}
	}
	if val := os.Getenv("REGMAINT_GC_DELETE_UNTAGGED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.GC.DeleteUntagged = b
			if printLogs {
				logger.Info("Using environment variable REGMAINT_GC_DELETE_UNTAGGED", "value", b)
			}
		}
	}
	if val := os.Getenv("REGMAINT_GC_RESTART_WAIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.GC.RestartWait = i
			if printLogs {
				logger.Info("Using environment variable REGMAINT_GC_RESTART_WAIT", "value", i)
			}
		} else {
			logger.Warn("Ignoring non-numeric REGMAINT_GC_RESTART_WAIT", "value", val)
		}
	}

	// Storage Configuration
	if val := os.Getenv("REGMAINT_STORAGE_ROOT"); val != "" {
		config.Storage.Root = val
		if printLogs {
			logger.Info("Using environment variable REGMAINT_STORAGE_ROOT", "value", val)
		}
	}

	// Use Podman socket if Podman is enabled and no Docker socket override is in play
	if config.Engine.Podman && config.Engine.PodmanSock != "" && os.Getenv("REGMAINT_ENGINE_SOCK") == "" {
		config.Engine.Sock = config.Engine.PodmanSock
		if printLogs {
			logger.Info("Setting Engine.Sock to PodmanSock value", "value", config.Engine.Sock)
		}
	}
}

func (config *Config) LoadConfig() (*Config, error) {
	// Get the config directory
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error getting configuration directory: %w", err)
	}

	logger.Debug("Using configuration directory", "dir", configDir)

	// Check for directly mounted config.yml when in a container
	var configFilePath string
	if isRunningInContainer() && fileExists("./config.yml") {
		configFilePath = "./config.yml"
		logger.Debug("Found directly mounted config.yml in container current directory")
	} else {
		configFilePath = filepath.Join(configDir, "config.yml")
	}

	configExists := true
	defaultsApplied := false

	_, err = os.Stat(configFilePath)
	if errors.Is(err, fs.ErrNotExist) {
		configExists = false
		logger.Info("Config file not found, creating it", "path", configFilePath)

		// Create config dir if it doesn't exist
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("error creating configuration directory: %w", err)
		}

		defaultsApplied = applyDefaultsToConfig(config)
	} else if err != nil {
		return nil, fmt.Errorf("error checking configuration file: %w", err)
	} else {
		// If config file exists, read it
		err = readAndUnmarshalConfig(os.DirFS(filepath.Dir(configFilePath)), filepath.Base(configFilePath), config)
		if err != nil {
			return nil, err
		}

		// Apply default values to fields that were not specified in the config file
		defaultsApplied = applyDefaultsToConfig(config)
	}

	// Environment variables override whatever the file said
	loadConfigFromEnv(config, true)

	// If we created a new config or applied defaults to an existing one, save it
	if !configExists || defaultsApplied {
		if err := config.SaveConfig(); err != nil {
			return nil, fmt.Errorf("error saving configuration: %w", err)
		}
	}

	logger.Debug("Loaded configuration from", "path", configFilePath)

	// Apply the log level from configuration
	if config.General.LogLevel != "" {
		logger.GetLogger().SetLogLevel(config.General.LogLevel)
	}

	if config.Registry.Insecure {
		logger.Warn("TLS certificate verification is DISABLED for the registry endpoint",
			"registry", config.Registry.BaseURL())
	}

	return config, nil
}

func (config *Config) SaveConfig() error {
	configDir, err := getConfigDir()
	if err != nil {
		return fmt.Errorf("error getting configuration directory: %w", err)
	}

	configFilePath := filepath.Join(configDir, "config.yml")

	logger.Debug("Saving configuration to", "path", configFilePath)

	if err := parser.WriteYAMLFile(configFilePath, config); err != nil {
		return fmt.Errorf("error writing configuration file: %w", err)
	}

	return nil
}

// Helper function to check if a file exists
func fileExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return err == nil
}

func isRunningInContainer() bool {
	// Check for .dockerenv file
	return fileExists("/.iscontainer") || fileExists("/.dockerenv")
}
