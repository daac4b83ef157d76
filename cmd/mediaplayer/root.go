package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/PizzaHomicide/mediaplayer/internal/config"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/media"
	"github.com/PizzaHomicide/mediaplayer/internal/player"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/console"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui"
	"github.com/PizzaHomicide/mediaplayer/internal/version"
)

func init() {
	rootCmd.Flags().Bool("headless", false, "Print notifications line by line instead of starting the TUI")
	rootCmd.Flags().Duration("start", 0, "Start position, e.g. 1m30s")
	rootCmd.Flags().Int("rate", 1, "Playback rate; 1 is normal speed, negative plays backwards where allowed")
}

var rootCmd = &cobra.Command{
	Use:           "mediaplayer [flags] <media>",
	Short:         "Play a file or URL through an external engine",
	Long:          "Play a file or URL through an external playback engine (mpv), controlled from a terminal UI or headless.",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlayer,
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	cc.Init(&cc.Config{
		RootCmd:       rootCmd,
		Headings:      cc.HiCyan + cc.Bold + cc.Underline,
		Commands:      cc.HiYellow + cc.Bold,
		Example:       cc.Italic,
		ExecName:      cc.Bold,
		Flags:         cc.Bold,
		FlagsDataType: cc.Italic + cc.HiBlue,
	})

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "mediaplayer: %s\n", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

func runPlayer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialise logger
	logger, err := log.New(log.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	defer logger.Close()

	// Set the default global logger
	log.SetDefaultLogger(logger)

	log.Info("Starting up mediaplayer", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	headless := cfg.UI.Headless ||
		lo.Must(cmd.Flags().GetBool("headless")) ||
		!term.IsTerminal(int(os.Stdout.Fd()))
	start := lo.Must(cmd.Flags().GetDuration("start"))
	rate := lo.Must(cmd.Flags().GetInt("rate"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := player.Open(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", cfg.Player.Engine, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("Error while closing the engine", "error", err)
		}
	}()

	if err := prepare(p, args[0], start, rate); err != nil {
		return err
	}

	if headless {
		return runHeadless(ctx, cmd, p)
	}

	if err := p.Play(); err != nil {
		return err
	}
	if err := tui.Run(p); err != nil {
		log.Error("Unhandled error while running TUI", "error", err)
		return err
	}

	log.Info("mediaplayer shutting down.  Goodbye!")
	return nil
}

// prepare binds the media and queues the start position and rate for when playback begins
func prepare(p *player.Player, location string, start time.Duration, rate int) error {
	h, err := media.New(location, media.Metadata{})
	if err != nil {
		return err
	}
	if err := p.SetMedia(h); err != nil {
		return err
	}
	if start > 0 {
		if err := p.SetTime(start.Milliseconds()); err != nil {
			return err
		}
	}
	if rate != 1 {
		if err := p.SetRate(rate); err != nil {
			return err
		}
	}
	return nil
}

func runHeadless(ctx context.Context, cmd *cobra.Command, p *player.Player) error {
	sub := p.Subscribe()
	defer sub.Close()

	if err := p.Play(); err != nil {
		return err
	}

	final, err := console.Watch(ctx, sub.Notifications(), cmd.OutOrStdout())
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("Interrupted, stopping playback")
		return p.Stop()
	case err != nil:
		return err
	case final == player.StateError:
		return p.LastError()
	}
	return nil
}
