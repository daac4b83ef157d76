package engine

import (
	"context"
	"sync"
)

// Handle gives exclusive ownership of an Engine.  Every command fails with ErrReleased once Release has run, and
// the engine's Close is called exactly once no matter how many times Release is called.
type Handle struct {
	eng Engine

	mu       sync.RWMutex
	released bool
	err      error
}

// Own wraps an engine.  The caller must not use eng directly afterwards.
func Own(eng Engine) *Handle {
	return &Handle{eng: eng}
}

// acquire keeps the engine alive for the duration of a command
func (h *Handle) acquire() (Engine, func(), error) {
	h.mu.RLock()
	if h.released {
		h.mu.RUnlock()
		return nil, nil, ErrReleased
	}
	return h.eng, h.mu.RUnlock, nil
}

func (h *Handle) Open(ctx context.Context, location string) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.Open(ctx, location)
}

func (h *Handle) Play(ctx context.Context) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.Play(ctx)
}

func (h *Handle) Pause(ctx context.Context) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.Pause(ctx)
}

func (h *Handle) Stop(ctx context.Context) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.Stop(ctx)
}

func (h *Handle) Seek(ctx context.Context, ms int64) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.Seek(ctx, ms)
}

func (h *Handle) SetProperty(ctx context.Context, prop Property, value any) error {
	eng, release, err := h.acquire()
	if err != nil {
		return err
	}
	defer release()
	return eng.SetProperty(ctx, prop, value)
}

func (h *Handle) GetProperty(ctx context.Context, prop Property) (any, error) {
	eng, release, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return eng.GetProperty(ctx, prop)
}

// Events returns the engine's raw event channel
func (h *Handle) Events() <-chan RawEvent {
	return h.eng.Events()
}

func (h *Handle) Capabilities() Capabilities {
	return h.eng.Capabilities()
}

// Engine exposes the wrapped engine for optional interface checks such as FrameSource
func (h *Handle) Engine() Engine {
	return h.eng
}

// Release closes the engine.  It waits for in-flight commands, so it must not be called while holding a lock
// a command is waiting on.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return h.err
	}
	h.released = true
	h.err = h.eng.Close()
	return h.err
}

// Released reports whether Release has been called
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}
