package player

import (
	"context"

	"github.com/PizzaHomicide/mediaplayer/internal/config"
	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/engine/mpv"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// CreateEngine starts the engine named in the configuration
func CreateEngine(ctx context.Context, cfg *config.Config) (engine.Engine, error) {
	engineType := cfg.Player.Engine
	log.Info("Creating engine", "type", engineType)

	if engineType != "mpv" {
		log.Warn("Unknown engine type, falling back to mpv", "type", engineType)
	}

	eng, err := mpv.Start(ctx, mpv.Options{
		Path:        cfg.Player.Path,
		Args:        cfg.Player.Args,
		SocketPath:  cfg.Player.SocketPath,
		EventBuffer: cfg.Player.EventQueueSize,
	})
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// OptionsFromConfig copies the player settings out of the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TimeInterval:          cfg.Player.TimeInterval,
		StopTimeout:           cfg.Player.StopTimeout,
		EventQueueSize:        cfg.Player.EventQueueSize,
		NotificationQueueSize: cfg.Player.NotificationQueueSize,
		AllowReverse:          cfg.Player.AllowReverse,
	}
}

// Open starts the configured engine and returns a player that owns it
func Open(ctx context.Context, cfg *config.Config, sink RenderSink) (*Player, error) {
	eng, err := CreateEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(engine.Own(eng), sink, OptionsFromConfig(cfg)), nil
}
