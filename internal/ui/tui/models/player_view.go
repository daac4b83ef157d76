package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/PizzaHomicide/mediaplayer/internal/log"
	"github.com/PizzaHomicide/mediaplayer/internal/player"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/mediaplayer/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/styles"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/util"
)

const seekStep int64 = 5000

var (
	errNoAudioTracks    = errors.New("no audio tracks")
	errNoSubtitleTracks = errors.New("no subtitle tracks")
)

// PlayerModel shows what is playing and turns keys into player commands.  Commands run as tea.Cmds because
// they wait for the engine.
type PlayerModel struct {
	ctl           Controller
	width, height int
	snap          Snapshot
	status        string // result of the last failed command
	progress      progress.Model
	spinner       spinner.Model
}

func NewPlayerModel(ctl Controller) *PlayerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &PlayerModel{
		ctl:      ctl,
		snap:     Snapshot{Title: "No media", Rate: 1, SubtitleTrack: -1},
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:  s,
	}
}

func (m *PlayerModel) ViewType() View {
	return ViewPlayer
}

func (m *PlayerModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spinner.Tick)
}

func (m *PlayerModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.progress.Width = max(width-4, 10)
}

func (m *PlayerModel) refresh() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: takeSnapshot(ctl)}
	}
}

func (m *PlayerModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		action := kb.GetActionByKey(msg, kb.ContextPlayer)
		if action == "" {
			return m, nil
		}
		log.Debug("Player action", "action", action)
		return m, m.handleAction(action)

	case NotificationMsg:
		n := msg.Notification
		switch n.Signal {
		case player.SignalTimeChanged:
			m.snap.Time = n.Time
			return m, nil
		case player.SignalStateChanged:
			m.snap.State = n.State
			return m, m.refresh()
		}

	case SnapshotMsg:
		m.snap = msg.Snapshot
		return m, nil

	case CommandResultMsg:
		if msg.Err != nil {
			log.Warn("Player command failed", "action", msg.Action, "error", msg.Err)
			m.status = msg.Err.Error()
		} else {
			m.status = ""
		}
		return m, m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *PlayerModel) run(action kb.Action, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: action, Err: fn()}
	}
}

func (m *PlayerModel) handleAction(action kb.Action) tea.Cmd {
	ctl := m.ctl
	switch action {
	case kb.ActionTogglePause:
		return m.run(action, ctl.TogglePause)
	case kb.ActionPlay:
		return m.run(action, ctl.Play)
	case kb.ActionStop:
		return m.run(action, ctl.Stop)
	case kb.ActionSeekBack:
		return m.run(action, func() error {
			return ctl.SetTime(max(ctl.Time()-seekStep, 0))
		})
	case kb.ActionSeekForward:
		return m.run(action, func() error {
			return ctl.SetTime(ctl.Time() + seekStep)
		})
	case kb.ActionCycleAudioTrack:
		return m.run(action, func() error {
			n := len(ctl.AudioTracks())
			if n == 0 {
				return errNoAudioTracks
			}
			return ctl.SetAudioTrack(nextTrack(ctl.AudioTrack(), n))
		})
	case kb.ActionCycleSubtitleTrack:
		return m.run(action, func() error {
			n := len(ctl.SubtitleTracks())
			if n == 0 {
				return errNoSubtitleTracks
			}
			return ctl.SetSubtitleTrack(nextTrack(ctl.SubtitleTrack(), n))
		})
	case kb.ActionCycleAudioChannel:
		return m.run(action, func() error {
			return ctl.SetAudioChannel(nextChannel(ctl.AudioChannel()))
		})
	case kb.ActionRateDown:
		return m.run(action, func() error {
			return ctl.SetRate(nextRate(ctl.Rate(), -1))
		})
	case kb.ActionRateUp:
		return m.run(action, func() error {
			return ctl.SetRate(nextRate(ctl.Rate(), 1))
		})
	case kb.ActionToggleFullscreen:
		return m.run(action, func() error {
			return ctl.SetFullscreen(!ctl.Fullscreen())
		})
	}
	return nil
}

// nextTrack cycles through off (-1) and every index below count
func nextTrack(current, count int) int {
	if current+1 >= count {
		return -1
	}
	return current + 1
}

// nextRate steps the rate by delta, stepping over 0 which is not a valid rate
func nextRate(rate, delta int) int {
	next := rate + delta
	if next == 0 {
		next += delta
	}
	return next
}

func nextChannel(c player.AudioChannel) player.AudioChannel {
	all := player.AudioChannels()
	idx := lo.IndexOf(all, c)
	return all[(idx+1)%len(all)]
}

func trackText(labels []string, idx int) string {
	if idx < 0 {
		return "off"
	}
	if idx >= len(labels) {
		return fmt.Sprintf("#%d", idx)
	}
	return fmt.Sprintf("%d/%d %s", idx+1, len(labels), labels[idx])
}

func (m *PlayerModel) View() string {
	s := m.snap
	width := max(m.width, 40)

	header := styles.Header(width, util.TruncateString(s.Title, width-4))

	position := util.FormatPlaybackTime(s.Time)
	if s.Length > 0 {
		position += " / " + util.FormatPlaybackTime(s.Length)
	}
	status := styles.StateBadge(s.State.String()) + "  " + position
	if s.State == player.StateOpening || s.State == player.StateBuffering {
		status += "  " + m.spinner.View()
	}

	var ratio float64
	if s.Length > 0 {
		ratio = min(max(float64(s.Time)/float64(s.Length), 0), 1)
	}

	details := []string{
		styles.Label.Render("Rate") + util.FormatRate(s.Rate),
		styles.Label.Render("Audio") + trackText(s.AudioTracks, s.AudioTrack),
		styles.Label.Render("Subtitles") + trackText(s.SubtitleTracks, s.SubtitleTrack),
		styles.Label.Render("Channel") + s.AudioChannel.String(),
		styles.Label.Render("Fullscreen") + lo.Ternary(s.Fullscreen, "on", "off"),
	}

	var messages []string
	if s.Err != nil {
		messages = append(messages, styles.Error.Render(s.Err.Error()))
	}
	if m.status != "" {
		messages = append(messages, styles.Error.Render(m.status))
	}

	bar := components.KeyBindingsBar(width, components.BarFor(kb.ContextBindings[kb.ContextPlayer], map[kb.Action]string{
		kb.ActionTogglePause: "pause",
		kb.ActionStop:        "stop",
		kb.ActionSeekBack:    "-5s",
		kb.ActionSeekForward: "+5s",
	}, kb.ActionTogglePause, kb.ActionStop, kb.ActionSeekBack, kb.ActionSeekForward)) + "\n" +
		styles.CenteredText(width, styles.Muted.Render("?: help • q: quit"))

	body := lipgloss.JoinVertical(lipgloss.Left,
		status,
		"",
		m.progress.ViewAs(ratio),
		"",
		strings.Join(details, "\n"),
	)

	parts := []string{header, "", styles.ContentBox(width-2, body, 1)}
	if len(messages) > 0 {
		parts = append(parts, "", strings.Join(messages, "\n"))
	}
	parts = append(parts, "", bar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
