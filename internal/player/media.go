package player

import (
	"errors"

	"github.com/samber/mo"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/media"
)

// SetMedia binds h, or detaches the current media when h is nil.  If media is already bound the engine is
// stopped first and SetMedia waits for the confirmation, bounded by the stop timeout.  When the engine does not
// confirm in time, or refuses to stop, the player stops locally, binds h anyway and returns a
// *BindingTimeoutError.  Selections, queued writes and the playback time are reset; the state is left at
// Stopped and h opens on the next Play.
func (p *Player) SetMedia(h *media.Handle) error {
	if h != nil && !h.Valid() {
		return &ValidationError{Property: "media", Value: h.Location(), Reason: "handle was invalidated", Err: ErrInvalidMedia}
	}
	if p.closed.Load() {
		return ErrClosed
	}
	p.lockInterrupting()
	defer p.cmdMu.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}

	p.mu.Lock()
	prev := p.media
	p.mu.Unlock()

	var bindErr error
	if prev != nil {
		if err := p.stopAndWait(); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			var timeout *BindingTimeoutError
			if !errors.As(err, &timeout) {
				p.post(ctlForceStop, 0)
				err = &BindingTimeoutError{Timeout: p.opts.StopTimeout, Cause: err}
			}
			log.Warn("Forced local stop while rebinding media", "error", err)
			bindErr = err
		}
	}

	p.mu.Lock()
	p.media = h
	p.lastErr = nil
	if prev != nil {
		restore := p.applied.restoreWrites()
		fullscreen := p.applied.fullscreen
		p.applied = defaultSettings()
		p.applied.fullscreen = fullscreen
		p.pending = restore
	}
	p.mu.Unlock()

	var announce int64
	if prev != nil {
		announce = 1
	}
	p.post(ctlMediaReset, announce)

	if h == nil {
		log.Info("Media detached")
	} else {
		log.Info("Media bound", "location", h.Location(), "title", h.Title())
	}
	return bindErr
}

// Media returns the bound media handle, if any
func (p *Player) Media() mo.Option[*media.Handle] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.media == nil {
		return mo.None[*media.Handle]()
	}
	return mo.Some(p.media)
}
