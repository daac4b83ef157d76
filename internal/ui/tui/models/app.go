package models

import (
	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/player"
	kb "github.com/PizzaHomicide/mediaplayer/internal/ui/tui/keybindings"
	tea "github.com/charmbracelet/bubbletea"
)

// AppModel is the main application model that coordinates all child models.  It is the high level wrapper.
type AppModel struct {
	sub           *player.Subscription
	activeModal   Modal // Track the current active 'modal overlay' if any
	width, height int

	playerModel *PlayerModel
	helpModel   *HelpModel
}

// NewAppModel subscribes to ctl and builds the views
func NewAppModel(ctl Controller) AppModel {
	return AppModel{
		sub:         ctl.Subscribe(),
		activeModal: ModalNone,
		playerModel: NewPlayerModel(ctl),
		helpModel:   NewHelpModel(),
	}
}

func (m AppModel) Init() tea.Cmd {
	log.Info("Initialising player TUI")
	return tea.Batch(waitForNotification(m.sub), m.playerModel.Init())
}

// waitForNotification turns the next notification into a message.  It is re-armed after every delivery.
func waitForNotification(sub *player.Subscription) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-sub.Notifications()
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return NotificationMsg{Notification: n}
	}
}

// Update handles messages and updates the models as appropriate
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextGlobal) {
		case kb.ActionQuit:
			log.Info("Quit command received.  Shutting down...")
			m.sub.Close()
			return m, tea.Quit
		case kb.ActionToggleHelp:
			log.Debug("Help requested")
			if m.activeModal != ModalNone {
				m.activeModal = ModalNone
			} else {
				m.activeModal = ModalHelp
			}
			return m, nil
		case kb.ActionBack:
			if m.activeModal != ModalNone {
				m.activeModal = ModalNone
				return m, nil
			}
		}

		if m.activeModal == ModalHelp {
			helpModel, cmd := m.helpModel.Update(msg)
			m.helpModel = helpModel.(*HelpModel)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		log.Debug("Window size changed", "old_width", m.width, "new_width", msg.Width, "old_height", m.height, "new_height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

		m.helpModel.Resize(msg.Width, msg.Height)
		m.playerModel.Resize(msg.Width, msg.Height)
		return m, nil

	case NotificationMsg:
		model, cmd := m.updatePlayerView(msg)
		return model, tea.Batch(cmd, waitForNotification(m.sub))

	case SubscriptionClosedMsg:
		log.Info("Player closed, leaving TUI")
		return m, tea.Quit

	case tea.MouseMsg:
		if m.activeModal == ModalHelp {
			helpModel, cmd := m.helpModel.Update(msg)
			m.helpModel = helpModel.(*HelpModel)
			return m, cmd
		}
	}

	return m.updatePlayerView(msg)
}

func (m AppModel) View() string {
	if m.activeModal == ModalHelp {
		return m.helpModel.View()
	}
	return m.playerModel.View()
}

func (m AppModel) updatePlayerView(msg tea.Msg) (AppModel, tea.Cmd) {
	model, cmd := m.playerModel.Update(msg)
	m.playerModel = model.(*PlayerModel)
	return m, cmd
}
