package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Text styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	Info = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#DEDEDE"))

	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF5F87")).
		Bold(true)

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")).
		Width(12)

	badge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#1A1A1A")).
		Padding(0, 1)
)

// Badge colours keyed by player.State.String()
var stateColours = map[string]lipgloss.Color{
	"playing":   lipgloss.Color("#43BF6D"),
	"paused":    lipgloss.Color("#F2C94C"),
	"opening":   lipgloss.Color("#56CCF2"),
	"buffering": lipgloss.Color("#56CCF2"),
	"ended":     lipgloss.Color("#BBBBBB"),
	"stopped":   lipgloss.Color("#BBBBBB"),
	"error":     lipgloss.Color("#FF5F87"),
}

// StateBadge renders a player state name in capitals on a coloured background
func StateBadge(state string) string {
	return badge.Background(StateColour(state)).Render(strings.ToUpper(state))
}

// StateColour is the badge colour for a player state name, grey for names it does not know
func StateColour(state string) lipgloss.Color {
	colour, ok := stateColours[state]
	if !ok {
		return lipgloss.Color("#BBBBBB")
	}
	return colour
}

// Layout helpers
func Header(width int, title string) string {
	return Title.
		Width(width).
		Align(lipgloss.Center).
		Render(title)
}

func ContentBox(width int, content string, padding int) string {
	return lipgloss.NewStyle().
		Width(width).
		Padding(padding).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#555555")).
		Render(content)
}

func CenteredView(width int, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func CenteredText(width int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(text)
}
