package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/agentchat/internal/chat"
)

const logPanelHeight = 6

// Lipgloss styles
var (
	// Header style - bold text on cyan
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Role labels in the transcript
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	// Picker rows
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("45")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	// Activity log lines by kind
	logInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	logSuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	logWarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	logErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// View renders the active screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modePicker {
		return m.renderPicker()
	}
	return m.renderChat()
}

func (m Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" agentchat ") + "\n\n")

	rows := make([]string, 0, len(m.threads)+1)
	rows = append(rows, "+ New chat")
	for _, info := range m.threads {
		rows = append(rows, threadLine(info))
	}
	for i, row := range rows {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(row) + "\n")
		} else {
			b.WriteString(rowStyle.Render(row) + "\n")
		}
	}
	if len(m.threads) == 0 {
		b.WriteString("\n" + dimStyle.Render("No saved conversations yet.") + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + logErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.footer(
		"[enter]", "open",
		"[d]", "delete",
		"[q]", "quit",
	))
	return b.String()
}

func (m Model) renderChat() string {
	var b strings.Builder

	title := m.session.SelectedLabel
	if title == "" {
		title = "New chat"
	}
	b.WriteString(headerStyle.Render(" "+title+" ") + "\n")

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	}
	b.WriteString(m.renderLog() + "\n")
	b.WriteString(inputStyle.Render(m.input.View()) + "\n")

	if m.busy {
		b.WriteString(m.spin.View() + dimStyle.Render(" thinking...") + "\n")
	} else if m.err != nil {
		b.WriteString(logErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	b.WriteString(m.footer(
		"[enter]", "send",
		"[ctrl+n]", "new chat",
		"[ctrl+d]", "delete",
		"[esc]", "threads",
	))
	return b.String()
}

// renderLog shows the tail of the per-turn activity log.
func (m Model) renderLog() string {
	entries := m.session.Log
	lines := make([]string, 0, logPanelHeight)
	for _, entry := range entries {
		lines = append(lines, renderLogEntry(entry)...)
	}
	if len(lines) > logPanelHeight {
		lines = lines[len(lines)-logPanelHeight:]
	}
	for len(lines) < logPanelHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderLogEntry(entry chat.LogEntry) []string {
	switch entry.Kind {
	case chat.LogSuccess:
		return []string{logSuccessStyle.Render("✓ " + entry.Text)}
	case chat.LogWarning:
		return []string{logWarningStyle.Render("⚠ " + entry.Text)}
	case chat.LogError:
		return []string{logErrorStyle.Render("✗ " + entry.Text)}
	case chat.LogToolCalls:
		lines := []string{logInfoStyle.Render("· " + entry.Text)}
		for _, call := range entry.Calls {
			lines = append(lines, logInfoStyle.Render(
				fmt.Sprintf("  %s %s (%s)", call.Type, call.Name, call.ID)))
		}
		return lines
	default:
		return []string{logInfoStyle.Render("· " + entry.Text)}
	}
}

func (m Model) footer(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(footerKeyStyle.Render(pairs[i]))
		b.WriteString(dimStyle.Render(" " + pairs[i+1] + "  "))
	}
	return b.String()
}
