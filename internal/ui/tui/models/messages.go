package models

import (
	"github.com/PizzaHomicide/mediaplayer/internal/player"
	kb "github.com/PizzaHomicide/mediaplayer/internal/ui/tui/keybindings"
)

// NotificationMsg carries a player notification into the program
type NotificationMsg struct {
	Notification player.Notification
}

// SubscriptionClosedMsg is sent when the player has closed and no more notifications will arrive
type SubscriptionClosedMsg struct{}

// CommandResultMsg is sent when a player command triggered by a key has returned
type CommandResultMsg struct {
	Action kb.Action
	Err    error
}

// SnapshotMsg carries a fresh read of the player's properties
type SnapshotMsg struct {
	Snapshot Snapshot
}
