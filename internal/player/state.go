package player

// State is the public playback state of a Player
type State int

const (
	StateStopped State = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// active reports whether media is loaded in the engine and properties can be applied to it
func (s State) active() bool {
	return s == StateBuffering || s == StatePlaying || s == StatePaused
}

// trigger is what the state machine reacts to.  Engine events and caller requests both end up as triggers.
type trigger int

const (
	trigOpenRequested trigger = iota
	trigBuffering
	trigPlaying
	trigPaused
	trigStopped
	trigEndReached
	trigFatal
)

func (t trigger) String() string {
	switch t {
	case trigOpenRequested:
		return "open-requested"
	case trigBuffering:
		return "buffering"
	case trigPlaying:
		return "playing"
	case trigPaused:
		return "paused"
	case trigStopped:
		return "stopped"
	case trigEndReached:
		return "end-reached"
	case trigFatal:
		return "fatal-error"
	default:
		return "unknown"
	}
}

// Anything missing from this table is ignored, including buffering while playing, which is a recoverable
// underrun rather than a state change.
var transitions = map[State]map[trigger]State{
	StateStopped: {
		trigOpenRequested: StateOpening,
		trigFatal:         StateError,
	},
	StateOpening: {
		trigBuffering: StateBuffering,
		trigPlaying:   StatePlaying,
		trigFatal:     StateError,
		trigStopped:   StateStopped,
	},
	StateBuffering: {
		trigPlaying:    StatePlaying,
		trigEndReached: StateEnded,
		trigFatal:      StateError,
		trigStopped:    StateStopped,
	},
	StatePlaying: {
		trigPaused:     StatePaused,
		trigEndReached: StateEnded,
		trigFatal:      StateError,
		trigStopped:    StateStopped,
	},
	StatePaused: {
		trigPlaying:    StatePlaying,
		trigEndReached: StateEnded,
		trigFatal:      StateError,
		trigStopped:    StateStopped,
	},
	StateEnded: {
		trigOpenRequested: StateOpening,
		trigFatal:         StateError,
		trigStopped:       StateStopped,
	},
	StateError: {
		trigOpenRequested: StateOpening,
		trigStopped:       StateStopped,
	},
}

// stateMachine holds the current state.  It is only touched by the player's event loop.
type stateMachine struct {
	current State
}

// fire applies t and reports whether the state changed
func (m *stateMachine) fire(t trigger) (prev, next State, changed bool) {
	prev = m.current
	next, ok := transitions[prev][t]
	if !ok || next == prev {
		return prev, prev, false
	}
	m.current = next
	return prev, next, true
}
