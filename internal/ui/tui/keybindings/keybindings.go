package keybindings

import tea "github.com/charmbracelet/bubbletea"

// Action represents a specific action that can be triggered by a key
type Action string

// Define all possible actions
const (
	// Global actions
	ActionQuit       Action = "quit"
	ActionToggleHelp Action = "toggle_help"
	ActionBack       Action = "back" // General purpose "go back" or "cancel"

	// Navigation actions
	ActionMoveUp     Action = "move_up"
	ActionMoveDown   Action = "move_down"
	ActionPageUp     Action = "page_up"
	ActionPageDown   Action = "page_down"
	ActionMoveTop    Action = "move_top"
	ActionMoveBottom Action = "move_bottom"

	// Playback actions
	ActionTogglePause        Action = "toggle_pause"
	ActionPlay               Action = "play"
	ActionStop               Action = "stop"
	ActionSeekBack           Action = "seek_back"
	ActionSeekForward        Action = "seek_forward"
	ActionCycleAudioTrack    Action = "cycle_audio_track"
	ActionCycleSubtitleTrack Action = "cycle_subtitle_track"
	ActionCycleAudioChannel  Action = "cycle_audio_channel"
	ActionRateDown           Action = "rate_down"
	ActionRateUp             Action = "rate_up"
	ActionToggleFullscreen   Action = "toggle_fullscreen"
)

// ContextName represents a specific UI context in the application that has its own keybinds
type ContextName string

const (
	ContextGlobal ContextName = "global"
	ContextPlayer ContextName = "player"
	ContextHelp   ContextName = "help"
)

var ContextBindings = map[ContextName][]Binding{
	ContextGlobal: globalBindings,
	ContextPlayer: playerBindings,
	ContextHelp:   helpBindings,
}

// KeyMap stores the mappings from actions to key sequences for each context
type KeyMap struct {
	Primary   string
	Secondary string // Optional alternative key
	Help      string // Description for help screen
}

// Binding maps an action to its keys and help text
type Binding struct {
	Action Action
	KeyMap KeyMap
}

// navigationBindings contains general navigation bindings for consistent navigation across the app
var navigationBindings = []Binding{
	{
		Action: ActionMoveUp,
		KeyMap: KeyMap{
			Primary:   "up",
			Secondary: "k",
			Help:      "Scroll up",
		},
	},
	{
		Action: ActionMoveDown,
		KeyMap: KeyMap{
			Primary:   "down",
			Secondary: "j",
			Help:      "Scroll down",
		},
	},
	{
		Action: ActionPageUp,
		KeyMap: KeyMap{
			Primary: "pgup",
			Help:    "Scroll up one page",
		},
	},
	{
		Action: ActionPageDown,
		KeyMap: KeyMap{
			Primary: "pgdown",
			Help:    "Scroll down one page",
		},
	},
	{
		Action: ActionMoveTop,
		KeyMap: KeyMap{
			Primary: "home",
			Help:    "Go to top",
		},
	},
	{
		Action: ActionMoveBottom,
		KeyMap: KeyMap{
			Primary: "end",
			Help:    "Go to bottom",
		},
	},
}

// globalBindings contains key bindings that work across all views
var globalBindings = []Binding{
	{
		Action: ActionQuit,
		KeyMap: KeyMap{
			Primary:   "ctrl+c",
			Secondary: "q",
			Help:      "Stop playback and quit",
		},
	},
	{
		Action: ActionToggleHelp,
		KeyMap: KeyMap{
			Primary: "?",
			Help:    "Toggle help screen",
		},
	},
	{
		Action: ActionBack,
		KeyMap: KeyMap{
			Primary: "esc",
			Help:    "Close help",
		},
	},
}

// helpBindings contains key bindings specific to the help view
var helpBindings = withNavigation([]Binding{})

// playerBindings contains key bindings specific to the player view
var playerBindings = []Binding{
	{
		Action: ActionTogglePause,
		KeyMap: KeyMap{
			Primary: " ",
			Help:    "Pause or resume",
		},
	},
	{
		Action: ActionPlay,
		KeyMap: KeyMap{
			Primary: "p",
			Help:    "Play (reopens ended or failed media)",
		},
	},
	{
		Action: ActionStop,
		KeyMap: KeyMap{
			Primary: "s",
			Help:    "Stop",
		},
	},
	{
		Action: ActionSeekBack,
		KeyMap: KeyMap{
			Primary: "left",
			Help:    "Seek back 5 seconds",
		},
	},
	{
		Action: ActionSeekForward,
		KeyMap: KeyMap{
			Primary: "right",
			Help:    "Seek forward 5 seconds",
		},
	},
	{
		Action: ActionCycleAudioTrack,
		KeyMap: KeyMap{
			Primary: "a",
			Help:    "Next audio track",
		},
	},
	{
		Action: ActionCycleSubtitleTrack,
		KeyMap: KeyMap{
			Primary: "v",
			Help:    "Next subtitle track",
		},
	},
	{
		Action: ActionCycleAudioChannel,
		KeyMap: KeyMap{
			Primary: "c",
			Help:    "Next audio channel mode",
		},
	},
	{
		Action: ActionRateDown,
		KeyMap: KeyMap{
			Primary: "[",
			Help:    "Slower",
		},
	},
	{
		Action: ActionRateUp,
		KeyMap: KeyMap{
			Primary: "]",
			Help:    "Faster",
		},
	},
	{
		Action: ActionToggleFullscreen,
		KeyMap: KeyMap{
			Primary: "f",
			Help:    "Toggle fullscreen",
		},
	},
}

// DisplayKey returns the key as it should be shown to the user
func DisplayKey(key string) string {
	if key == " " {
		return "space"
	}
	return key
}

// GetActionKey returns the primary key for an action
func GetActionKey(action Action, bindings []Binding) string {
	for _, binding := range bindings {
		if binding.Action == action {
			return binding.KeyMap.Primary
		}
	}
	return ""
}

// GetBindingByKey returns the action and help text for a given key
func GetBindingByKey(key string, bindings []Binding) (Action, string) {
	for _, binding := range bindings {
		if binding.KeyMap.Primary == key || binding.KeyMap.Secondary == key {
			return binding.Action, binding.KeyMap.Help
		}
	}
	return "", ""
}

// GetActionByKey returns just the action for a given key, or an empty Action if not found
func GetActionByKey(keyMsg tea.KeyMsg, name ContextName) Action {
	if bindings, exists := ContextBindings[name]; exists {
		action, _ := GetBindingByKey(keyMsg.String(), bindings)
		return action
	}
	return ""
}

// FormatKeyHelp formats a key binding for display in help text
func FormatKeyHelp(binding Binding) string {
	if binding.KeyMap.Secondary != "" {
		return DisplayKey(binding.KeyMap.Primary) + "/" + DisplayKey(binding.KeyMap.Secondary) + ": " + binding.KeyMap.Help
	}
	return DisplayKey(binding.KeyMap.Primary) + ": " + binding.KeyMap.Help
}

// withNavigation is a helper function to include navigation bindings in other binding sets
func withNavigation(bindings []Binding) []Binding {
	return append(append([]Binding{}, navigationBindings...), bindings...)
}
