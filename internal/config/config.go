package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// PlayerConfig contains engine and playback settings
type PlayerConfig struct {
	Engine     string `yaml:"engine,omitempty"` // "mpv"
	Path       string `yaml:"path,omitempty"`
	Args       string `yaml:"args,omitempty"`
	SocketPath string `yaml:"socket_path,omitempty"`
	// Minimum spacing between two time-changed notifications
	TimeInterval time.Duration `yaml:"time_interval,omitempty"`
	// Bound on the stop-and-wait step of stop and media rebinding
	StopTimeout           time.Duration `yaml:"stop_timeout,omitempty"`
	EventQueueSize        int           `yaml:"event_queue_size,omitempty"`
	NotificationQueueSize int           `yaml:"notification_queue_size,omitempty"`
	AllowReverse          bool          `yaml:"allow_reverse,omitempty"`
}

// UIConfig contains terminal UI preferences
type UIConfig struct {
	// Headless prints notifications line by line instead of starting the TUI
	Headless bool `yaml:"headless,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Apply environment variable overrides
func Load() (*Config, error) {
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still let the application startup using the defaults.
		_ = save(cfg, configPath)
	}

	applyDynamicDefaults(cfg)

	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	// Environment variables take precedence over everything else
	if err = applyEnvVarOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
// Unlike static defaults, these values might change between runs based on the environment or system configuration.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// UpdateConfig reads the existing config, applies the update function, and saves it back to disk
func UpdateConfig(updateFn func(*Config)) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("unable to determine config file path: %w", err)
	}

	cfg, err := loadFromDisk(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file from disk: %w", err)
	}

	updateFn(cfg)

	return save(cfg, configPath)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else tries
// to use OS config location defaults.
func getConfigPath() (string, error) {
	configPath := os.Getenv(EnvConfigPath)
	if configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "mediaplayer", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Engine:                "mpv",
			Path:                  "mpv",
			TimeInterval:          200 * time.Millisecond,
			StopTimeout:           3 * time.Second,
			EventQueueSize:        256,
			NotificationQueueSize: 16,
		},
		UI: UIConfig{},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to logging in the current directory if home directory cannot be determined
		return filepath.Join(".", "mediaplayer.log")
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\mediaplayer\logs
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "mediaplayer", "logs")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "mediaplayer", "logs")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/mediaplayer
		basePath = filepath.Join(homedir, "Library", "Logs", "mediaplayer")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			basePath = filepath.Join(xdgState, "mediaplayer", "logs")
		} else {
			basePath = filepath.Join(homedir, ".local", "state", "mediaplayer", "logs")
		}
	}

	if err := os.MkdirAll(basePath, 0700); err != nil {
		return filepath.Join(".", "mediaplayer.log")
	}
	return filepath.Join(basePath, "mediaplayer.log")
}
