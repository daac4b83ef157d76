// Package console prints player notifications line by line for when there is no terminal to draw a TUI on.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/player"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/util"
)

// ErrClosed is returned by Watch when the notification channel closes before playback does
var ErrClosed = errors.New("player closed before playback finished")

// Watch writes state changes and whole-second time changes from notes to w until the player reaches Stopped, Ended
// or Error, and returns that state.
func Watch(ctx context.Context, notes <-chan player.Notification, w io.Writer) (player.State, error) {
	lastShown := ""
	for {
		select {
		case <-ctx.Done():
			return player.StateStopped, ctx.Err()

		case n, ok := <-notes:
			if !ok {
				return player.StateStopped, ErrClosed
			}

			switch n.Signal {
			case player.SignalTimeChanged:
				shown := util.FormatPlaybackTime(n.Time)
				if shown == lastShown {
					continue
				}
				lastShown = shown
				if _, err := fmt.Fprintf(w, "time  %s\n", shown); err != nil {
					return n.State, err
				}

			case player.SignalStateChanged:
				if _, err := fmt.Fprintf(w, "state %s -> %s\n", n.Previous, n.State); err != nil {
					return n.State, err
				}
				switch n.State {
				case player.StateStopped, player.StateEnded, player.StateError:
					log.Debug("Playback finished", "state", n.State.String())
					return n.State, nil
				}
			}
		}
	}
}
