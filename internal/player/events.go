package player

import "fmt"

// EventKind is the closed set of engine events the player reacts to
type EventKind int

const (
	EventOpening EventKind = iota
	EventBuffering
	EventPlayingStarted
	EventPaused
	EventStopped
	EventEndReached
	EventError
	EventTimeChanged
	EventVideoOutput
)

func (k EventKind) String() string {
	switch k {
	case EventOpening:
		return "opening"
	case EventBuffering:
		return "buffering"
	case EventPlayingStarted:
		return "playing-started"
	case EventPaused:
		return "paused"
	case EventStopped:
		return "stopped"
	case EventEndReached:
		return "end-reached"
	case EventError:
		return "error"
	case EventTimeChanged:
		return "time-changed"
	case EventVideoOutput:
		return "video-output"
	default:
		return "unknown"
	}
}

// Event is a translated engine event.  Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Percent int    // EventBuffering
	Time    int64  // EventTimeChanged, milliseconds
	Width   int    // EventVideoOutput
	Height  int    // EventVideoOutput
	Code    string // EventError
	Message string // EventError
	Fatal   bool   // EventError
}

func (e Event) String() string {
	switch e.Kind {
	case EventBuffering:
		return fmt.Sprintf("buffering(%d%%)", e.Percent)
	case EventTimeChanged:
		return fmt.Sprintf("time-changed(%d)", e.Time)
	case EventVideoOutput:
		return fmt.Sprintf("video-output(%dx%d)", e.Width, e.Height)
	case EventError:
		return fmt.Sprintf("error(%s, fatal=%t)", e.Code, e.Fatal)
	default:
		return e.Kind.String()
	}
}

// trigger maps an engine event onto the state machine.  Events that only carry data report false.
func (e Event) trigger() (trigger, bool) {
	switch e.Kind {
	case EventBuffering:
		return trigBuffering, true
	case EventPlayingStarted:
		return trigPlaying, true
	case EventPaused:
		return trigPaused, true
	case EventStopped:
		return trigStopped, true
	case EventEndReached:
		return trigEndReached, true
	case EventError:
		if e.Fatal {
			return trigFatal, true
		}
	}
	return 0, false
}
