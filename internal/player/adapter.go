package player

import (
	"encoding/json"
	"math"

	"github.com/PizzaHomicide/mediaplayer/internal/engine"
	"github.com/PizzaHomicide/mediaplayer/internal/log"
)

// Error codes carried by EventError
const (
	ErrCodeOpenFailed = "open-failed"
	ErrCodeEngineGone = "engine-gone"
)

// adapter translates raw engine events into Events.  It tracks the engine's pause flag because mpv reports
// playback-restart after a seek even while paused, which must not read as playback starting.  An unpause only
// means a resume once the current file has started playing: mpv also reports the unpause written while opening,
// before anything is loaded.
type adapter struct {
	paused  bool
	started bool
}

func (a *adapter) translate(raw engine.RawEvent) (Event, bool) {
	switch raw.Event {
	case "start-file":
		a.started = false
		return Event{Kind: EventOpening}, true

	case "playback-restart":
		a.started = true
		if a.paused {
			return Event{}, false
		}
		return Event{Kind: EventPlayingStarted}, true

	case "end-file":
		a.started = false
		switch raw.Reason {
		case "eof":
			return Event{Kind: EventEndReached}, true
		case "error":
			return Event{Kind: EventError, Code: ErrCodeOpenFailed, Message: raw.FileError, Fatal: true}, true
		default: // stop, quit, redirect
			return Event{Kind: EventStopped}, true
		}

	case "shutdown":
		return engineGone("engine shut down"), true

	case "property-change":
		return a.translateProperty(raw)
	}

	log.Trace("Ignoring engine event", "event", raw.Event)
	return Event{}, false
}

func (a *adapter) translateProperty(raw engine.RawEvent) (Event, bool) {
	// Properties are null while nothing is loaded
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return Event{}, false
	}

	switch raw.Name {
	case "pause":
		var paused bool
		if !decode(raw, &paused) {
			return Event{}, false
		}
		wasPaused := a.paused
		a.paused = paused
		if paused {
			return Event{Kind: EventPaused}, true
		}
		if !a.started || !wasPaused {
			return Event{}, false
		}
		return Event{Kind: EventPlayingStarted}, true

	case "paused-for-cache":
		var waiting bool
		if !decode(raw, &waiting) || !waiting {
			return Event{}, false
		}
		return Event{Kind: EventBuffering, Percent: 0}, true

	case "cache-buffering-state":
		var percent int
		if !decode(raw, &percent) || percent >= 100 {
			return Event{}, false
		}
		return Event{Kind: EventBuffering, Percent: percent}, true

	case "time-pos":
		var secs float64
		if !decode(raw, &secs) {
			return Event{}, false
		}
		return Event{Kind: EventTimeChanged, Time: int64(math.Round(math.Max(secs, 0) * 1000))}, true

	case "video-params":
		var params struct {
			W int `json:"w"`
			H int `json:"h"`
		}
		if !decode(raw, &params) || params.W <= 0 || params.H <= 0 {
			return Event{}, false
		}
		return Event{Kind: EventVideoOutput, Width: params.W, Height: params.H}, true
	}

	return Event{}, false
}

func engineGone(msg string) Event {
	return Event{Kind: EventError, Code: ErrCodeEngineGone, Message: msg, Fatal: true}
}

func decode(raw engine.RawEvent, v any) bool {
	if err := json.Unmarshal(raw.Data, v); err != nil {
		log.Warn("Failed to decode engine property", "name", raw.Name, "data", string(raw.Data), "error", err)
		return false
	}
	return true
}
