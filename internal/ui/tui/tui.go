package tui

import (
	"github.com/PizzaHomicide/mediaplayer/internal/ui/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the player TUI until the user quits or the player closes
func Run(ctl models.Controller) error {
	p := tea.NewProgram(models.NewAppModel(ctl), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
