package models

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	kb "github.com/PizzaHomicide/mediaplayer/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel displays the keybindings with scrolling
type HelpModel struct {
	width, height int
	viewport      viewport.Model
}

func NewHelpModel() *HelpModel {
	m := &HelpModel{viewport: viewport.New(0, 0)}
	m.updateContent()
	return m
}

func (m *HelpModel) ViewType() View {
	return ViewHelp
}

func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *HelpModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextHelp) {
		case kb.ActionMoveUp:
			m.viewport.LineUp(1)
		case kb.ActionMoveDown:
			m.viewport.LineDown(1)
		case kb.ActionPageUp:
			m.viewport.ViewUp()
		case kb.ActionPageDown:
			m.viewport.ViewDown()
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		}
	}
	return m, cmd
}

// Resize updates the dimensions
func (m *HelpModel) Resize(width, height int) {
	m.width = width
	m.height = height

	// Account for borders, header, footer and spacing
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-10, 1)

	m.updateContent()
}

func (m *HelpModel) updateContent() {
	m.viewport.SetContent(m.generateHelpContent())
	m.viewport.GotoTop()
}

func (m *HelpModel) View() string {
	header := styles.Header(m.width, "Help")

	scrollText := "↑/↓: Scroll • PgUp/PgDn: Page scroll • Home/End: Goto top/bottom • ESC: Return"
	footer := styles.CenteredText(m.width, styles.Info.Render(scrollText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

// formatKeybindingSection formats a section of keybindings with aligned colons
func formatKeybindingSection(title string, bindings []kb.Binding) string {
	if len(bindings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n\n")

	keyTexts := make([]string, len(bindings))
	maxKeyWidth := 0
	for i, binding := range bindings {
		keyText := kb.DisplayKey(binding.KeyMap.Primary)
		if binding.KeyMap.Secondary != "" {
			keyText += " or " + kb.DisplayKey(binding.KeyMap.Secondary)
		}
		keyTexts[i] = keyText
		maxKeyWidth = max(maxKeyWidth, runewidth.StringWidth(keyText))
	}

	for i, binding := range bindings {
		padding := strings.Repeat(" ", maxKeyWidth-runewidth.StringWidth(keyTexts[i]))
		b.WriteString(fmt.Sprintf("• %s%s : %s\n",
			lipgloss.NewStyle().Bold(true).Render(keyTexts[i]),
			padding,
			binding.KeyMap.Help))
	}

	return b.String()
}

func (m *HelpModel) generateHelpContent() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

	b.WriteString(titleStyle.Render("Player"))
	b.WriteString("\n\n")
	b.WriteString("Controls the media bound on the command line. Commands that the engine refuses, or values that ")
	b.WriteString("are out of range for the current media, are shown below the player and leave playback as it was. ")
	b.WriteString("Settings changed before playback starts are applied once it does.")
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Keybindings"))
	b.WriteString("\n\n")
	b.WriteString(formatKeybindingSection("Global commands:", kb.ContextBindings[kb.ContextGlobal]))
	b.WriteString("\n")
	b.WriteString(formatKeybindingSection("Playback commands:", kb.ContextBindings[kb.ContextPlayer]))
	b.WriteString("\n")
	b.WriteString(formatKeybindingSection("In this screen:", kb.ContextBindings[kb.ContextHelp]))

	return b.String()
}
