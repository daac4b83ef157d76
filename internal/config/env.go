package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvConfigPath points at the config file to load.  It is read before the config exists, so it has no apply step.
const EnvConfigPath = "MEDIAPLAYER_CONFIG_PATH"

// EnvVar documents a supported environment variable override
type EnvVar struct {
	Name  string
	Desc  string
	apply func(*Config, string) error
}

var supportedEnvVars = []EnvVar{
	{
		Name:  EnvConfigPath,
		Desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) error { return nil },
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_PLAYER_ENGINE",
		Desc:  "Sets the playback engine.  Currently only `mpv`.  Default: mpv",
		apply: func(c *Config, s string) error { c.Player.Engine = s; return nil },
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_PLAYER_PATH",
		Desc:  "Sets the path to the engine binary.  Default: mpv",
		apply: func(c *Config, s string) error { c.Player.Path = s; return nil },
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_PLAYER_ARGS",
		Desc:  "Sets extra arguments passed to the engine binary.  Default: None",
		apply: func(c *Config, s string) error { c.Player.Args = s; return nil },
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_PLAYER_SOCKET_PATH",
		Desc:  "Sets the engine IPC socket or pipe path.  Default: OS-specific",
		apply: func(c *Config, s string) error { c.Player.SocketPath = s; return nil },
	},
	{
		Name: "MEDIAPLAYER_CONFIG_PLAYER_TIME_INTERVAL",
		Desc: "Sets the minimum spacing between time-changed notifications, e.g. 250ms.  Default: 200ms",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.TimeInterval)
		},
	},
	{
		Name: "MEDIAPLAYER_CONFIG_PLAYER_STOP_TIMEOUT",
		Desc: "Sets how long stop and media rebinding wait for the engine, e.g. 5s.  Default: 3s",
		apply: func(c *Config, s string) error {
			return parseDuration(s, &c.Player.StopTimeout)
		},
	},
	{
		Name: "MEDIAPLAYER_CONFIG_PLAYER_EVENT_QUEUE_SIZE",
		Desc: "Sets the capacity of the engine event queue.  Default: 256",
		apply: func(c *Config, s string) error {
			return parseInt(s, &c.Player.EventQueueSize)
		},
	},
	{
		Name: "MEDIAPLAYER_CONFIG_PLAYER_NOTIFICATION_QUEUE_SIZE",
		Desc: "Sets the per-subscriber notification queue bound.  Default: 16",
		apply: func(c *Config, s string) error {
			return parseInt(s, &c.Player.NotificationQueueSize)
		},
	},
	{
		Name: "MEDIAPLAYER_CONFIG_PLAYER_ALLOW_REVERSE",
		Desc: "Allows negative playback rates when the engine supports them.  Default: false",
		apply: func(c *Config, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			c.Player.AllowReverse = v
			return nil
		},
	},
	{
		Name: "MEDIAPLAYER_CONFIG_UI_HEADLESS",
		Desc: "Prints notifications line by line instead of starting the TUI.  Default: false",
		apply: func(c *Config, s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			c.UI.Headless = v
			return nil
		},
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_LOGGING_LEVEL",
		Desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: func(c *Config, s string) error { c.Logging.Level = s; return nil },
	},
	{
		Name:  "MEDIAPLAYER_CONFIG_LOGGING_FILE_PATH",
		Desc:  "Sets the logging file path, or - for stderr.  Default: OS-specific",
		apply: func(c *Config, s string) error { c.Logging.FilePath = s; return nil },
	},
}

// SupportedEnvVars lists the environment variable overrides, in the order they are applied
func SupportedEnvVars() []EnvVar {
	return append([]EnvVar(nil), supportedEnvVars...)
}

func applyEnvVarOverrides(c *Config) error {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.Name); value != "" {
			if err := envVar.apply(c, value); err != nil {
				return fmt.Errorf("invalid value %q for %s: %w", value, envVar.Name, err)
			}
		}
	}
	return nil
}

func parseDuration(s string, out *time.Duration) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*out = d
	return nil
}

func parseInt(s string, out *int) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*out = v
	return nil
}
