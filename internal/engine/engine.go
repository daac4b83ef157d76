// Package engine defines what the player needs from a decode/render engine: commands, property access, and a
// stream of raw engine events.
package engine

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrReleased is returned by a Handle after Release
var ErrReleased = errors.New("engine handle released")

// ErrUnsupported is returned for properties an engine cannot read or write
var ErrUnsupported = errors.New("property not supported by engine")

// Property names a value the player reads from or writes to the engine.  The value types are fixed per property
// and listed next to each constant; engines translate them to their own vocabulary.
type Property string

const (
	PropFullscreen    Property = "fullscreen"     // bool
	PropAspectRatio   Property = "aspect-ratio"   // string "W:H"
	PropCropGeometry  Property = "crop-geometry"  // string, engine grammar
	PropTeletextPage  Property = "teletext-page"  // int, 0 disables
	PropRate          Property = "rate"           // int, 1 is normal speed, negative plays backwards
	PropAudioTrack    Property = "audio-track"    // int index into the audio tracks, -1 disables
	PropSubtitleTrack Property = "subtitle-track" // int index into the subtitle tracks, -1 disables
	PropAudioChannel  Property = "audio-channel"  // string: default, stereo, left, right, dolby
	PropChapter       Property = "chapter"        // int

	// Read only
	PropTime            Property = "time"              // int64 milliseconds
	PropLength          Property = "length"            // int64 milliseconds
	PropVideoWidth      Property = "video-width"       // int
	PropVideoHeight     Property = "video-height"      // int
	PropHasVideoOutput  Property = "has-video-output"  // bool
	PropFramesPerSecond Property = "frames-per-second" // float64
	PropChapterCount    Property = "chapter-count"     // int
	PropTracks          Property = "tracks"            // []Track
)

// TrackType separates audio, video and subtitle streams
type TrackType string

const (
	TrackAudio    TrackType = "audio"
	TrackVideo    TrackType = "video"
	TrackSubtitle TrackType = "sub"
)

// Track describes one elementary stream of the open media
type Track struct {
	ID       int       `json:"id"`
	Type     TrackType `json:"type"`
	Title    string    `json:"title,omitempty"`
	Lang     string    `json:"lang,omitempty"`
	Codec    string    `json:"codec,omitempty"`
	Selected bool      `json:"selected"`
}

// RawEvent is an engine notification as delivered by the engine, before translation.  The shape follows the
// mpv JSON IPC protocol, which other engines emulate.
type RawEvent struct {
	Event     string          `json:"event"`
	ID        int             `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Capabilities advertises optional engine features
type Capabilities struct {
	ReversePlayback bool
}

// Engine is the decode/render subsystem.  Commands may fail synchronously; asynchronous failures arrive as raw
// events.  Events must be safe to call once and the returned channel is closed when the engine goes away.
type Engine interface {
	Open(ctx context.Context, location string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, ms int64) error
	SetProperty(ctx context.Context, prop Property, value any) error
	GetProperty(ctx context.Context, prop Property) (any, error)
	Events() <-chan RawEvent
	Capabilities() Capabilities
	Close() error
}

// Frame is one decoded video picture
type Frame struct {
	Width, Height int
	PTS           int64 // milliseconds
	Data          []byte
}

// FrameSource is implemented by engines that hand decoded frames to the caller rather than rendering them
// into their own window.
type FrameSource interface {
	SetFrameHandler(func(Frame))
}
