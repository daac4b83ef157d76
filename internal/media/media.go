// Package media describes the resources a player can be bound to.
package media

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// ErrEmptyLocation is returned when a handle is created without a location
var ErrEmptyLocation = errors.New("media location is empty")

// Metadata is descriptive information supplied by whoever created the handle
type Metadata struct {
	Title    string
	Duration time.Duration
}

// Handle is an immutable reference to a media resource.  The caller owns it; a player only borrows it for the
// length of a playback session.  Invalidate marks the resource as gone (deleted file, expired URL) and is the
// only mutation a handle supports.
type Handle struct {
	location string
	meta     Metadata
	invalid  atomic.Bool
}

// New creates a handle for a file path or URL
func New(location string, meta Metadata) (*Handle, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrEmptyLocation
	}
	return &Handle{location: location, meta: meta}, nil
}

// Location returns the path or URL handed to the engine
func (h *Handle) Location() string {
	return h.location
}

// Metadata returns the descriptive information for the resource
func (h *Handle) Metadata() Metadata {
	return h.meta
}

// Title returns the metadata title, falling back to the last path element of the location
func (h *Handle) Title() string {
	if h.meta.Title != "" {
		return h.meta.Title
	}
	loc := strings.TrimRight(h.location, "/")
	if i := strings.LastIndexAny(loc, `/\`); i >= 0 && i < len(loc)-1 {
		return loc[i+1:]
	}
	return filepath.Base(loc)
}

// Valid reports whether the resource can still be played
func (h *Handle) Valid() bool {
	return h != nil && !h.invalid.Load()
}

// Invalidate marks the handle as no longer playable.  It cannot be undone.
func (h *Handle) Invalidate() {
	h.invalid.Store(true)
}

func (h *Handle) String() string {
	return h.location
}
