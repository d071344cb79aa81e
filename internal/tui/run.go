package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/agentchat/internal/chat"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

// Run starts the interactive client and blocks until the user quits.
func Run(loop *chat.Loop, directory *journal.Directory) error {
	p := tea.NewProgram(NewModel(loop, directory), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
