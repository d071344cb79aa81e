// Package tui is the interactive terminal front end: a thread picker over
// the local journal directory and a chat view driven by the interaction
// loop, with a per-turn activity log for service-side transparency.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/agentchat/internal/chat"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

// mode selects the active screen.
type mode int

const (
	modePicker mode = iota
	modeChat
)

// Message types
type threadsMsg struct {
	threads []journal.ThreadInfo
	err     error
}

type turnMsg struct {
	result *chat.TurnResult
	err    error
}

type deletedMsg struct {
	threadID string
	err      error
}

// Model is the BubbleTea model for the chat client.
type Model struct {
	loop      *chat.Loop
	directory *journal.Directory
	session   *chat.Session

	mode    mode
	threads []journal.ThreadInfo
	cursor  int

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	width    int
	height   int
	ready    bool
	busy     bool
	err      error
	quitting bool
}

// NewModel creates the TUI model. The picker is shown first; selecting a
// thread or starting a new chat switches to the chat view.
func NewModel(loop *chat.Loop, directory *journal.Directory) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about the docs..."
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		loop:      loop,
		directory: directory,
		session:   &chat.Session{},
		mode:      modePicker,
		input:     ti,
		spin:      sp,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return loadThreads(m.directory)
}

// loadThreads scans the journal directory.
func loadThreads(directory *journal.Directory) tea.Cmd {
	return func() tea.Msg {
		threads, err := directory.ListThreads(context.Background())
		return threadsMsg{threads: threads, err: err}
	}
}

// runTurn processes one user turn. The session is only touched here while
// the model is marked busy, so the turn owns it for the duration. No local
// deadline: the service decides how long a run takes, same as the REPL.
func runTurn(loop *chat.Loop, sess *chat.Session, input string) tea.Cmd {
	return func() tea.Msg {
		result, err := loop.Turn(context.Background(), sess, input)
		return turnMsg{result: result, err: err}
	}
}

// deleteThread removes a thread's local journal.
func deleteThread(loop *chat.Loop, threadID string) tea.Cmd {
	return func() tea.Msg {
		err := loop.DeleteConversation(context.Background(), threadID)
		return deletedMsg{threadID: threadID, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case threadsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.threads = msg.threads
		if m.cursor > len(m.threads) {
			m.cursor = len(m.threads)
		}
		return m, nil

	case turnMsg:
		m.busy = false
		m.err = msg.err
		m.syncTranscript()
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if m.session.ThreadID == msg.threadID {
			m.loop.NewChat(m.session)
			m.syncTranscript()
		}
		return m, loadThreads(m.directory)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.mode == modePicker {
		return m.handlePickerKey(msg)
	}
	return m.handleChatKey(msg)
}

// handlePickerKey navigates the thread list. The cursor ranges over the
// "New chat" row (index 0) plus one row per thread.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.threads) {
			m.cursor++
		}
		return m, nil

	case "d":
		if m.cursor > 0 {
			return m, deleteThread(m.loop, m.threads[m.cursor-1].ThreadID)
		}
		return m, nil

	case "enter":
		if m.cursor == 0 {
			m.loop.NewChat(m.session)
		} else {
			info := m.threads[m.cursor-1]
			m.loop.Resume(context.Background(), m.session, info.ThreadID)
			m.session.SelectedLabel = info.Label
		}
		m.mode = modeChat
		m.err = nil
		m.syncTranscript()
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.busy {
			return m, nil
		}
		m.mode = modePicker
		m.input.Blur()
		return m, loadThreads(m.directory)

	case "ctrl+n":
		if m.busy {
			return m, nil
		}
		m.loop.NewChat(m.session)
		m.err = nil
		m.syncTranscript()
		return m, nil

	case "ctrl+d":
		if m.busy || m.session.ThreadID == "" {
			return m, nil
		}
		return m, deleteThread(m.loop, m.session.ThreadID)

	case "enter":
		if m.busy {
			return m, nil
		}
		input := strings.TrimSpace(m.input.Value())
		if input == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.busy = true
		m.err = nil
		m.session.ClearLog()
		return m, tea.Batch(
			runTurn(m.loop, m.session, input),
			m.spin.Tick,
		)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	// Header, log panel, input, and footer take fixed rows; the transcript
	// gets the rest.
	vpHeight := m.height - logPanelHeight - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width-2, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width - 2
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 6
	m.syncTranscript()
}

// syncTranscript re-renders the conversation into the viewport and scrolls
// to the newest message.
func (m *Model) syncTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.session.Messages {
		if msg.Role == journal.RoleUser {
			b.WriteString(userStyle.Render("You") + "\n")
		} else {
			b.WriteString(assistantStyle.Render("Assistant") + "\n")
		}
		b.WriteString(wrap(msg.Text, m.viewport.Width) + "\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// wrap breaks text at word boundaries to fit the given width. Width is
// counted in runes; a break never lands inside a multi-byte sequence.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			cut := -1
			for i := width - 1; i > 0; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
			if cut <= 0 {
				cut = width
			}
			lines = append(lines, string(runes[:cut]))
			runes = runes[cut:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
		lines = append(lines, string(runes))
	}
	return strings.Join(lines, "\n")
}

func threadLine(info journal.ThreadInfo) string {
	return fmt.Sprintf("%s  %s", info.Started(), info.Label)
}
