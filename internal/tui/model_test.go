package tui

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentchat/internal/agents"
	"github.com/fyrsmithlabs/agentchat/internal/chat"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

// stubService satisfies chat.AgentService for model tests; no test drives
// a full turn through it.
type stubService struct{}

func (stubService) CreateAgent(ctx context.Context, model, name, instructions string, tools []agents.Tool) (*agents.Agent, error) {
	return &agents.Agent{ID: "asst_1"}, nil
}
func (stubService) DeleteAgent(ctx context.Context, agentID string) error { return nil }
func (stubService) CreateThread(ctx context.Context) (*agents.Thread, error) {
	return &agents.Thread{ID: "thread_1"}, nil
}
func (stubService) CreateMessage(ctx context.Context, threadID, role, content string) (*agents.Message, error) {
	return &agents.Message{ID: "msg_1"}, nil
}
func (stubService) RunAndWait(ctx context.Context, threadID, agentID string, tools []agents.Tool) (*agents.Run, error) {
	return &agents.Run{ID: "run_1", Status: agents.RunCompleted}, nil
}
func (stubService) ListMessages(ctx context.Context, threadID string, desc bool) ([]agents.Message, error) {
	return nil, nil
}
func (stubService) ListRunSteps(ctx context.Context, threadID, runID string) ([]agents.RunStep, error) {
	return nil, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	store, err := journal.NewStore(&journal.Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	directory, err := journal.NewDirectory(store, journal.LabelFirstUser, nil)
	require.NoError(t, err)
	loop, err := chat.NewLoop(&chat.Config{Model: "gpt-4o"}, stubService{}, store, nil)
	require.NoError(t, err)
	return NewModel(loop, directory)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestPickerNavigation(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(threadsMsg{threads: []journal.ThreadInfo{
		{ThreadID: "t1", Label: "Hello", StartedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{ThreadID: "t2", Label: "Azure", StartedAt: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)},
	}})
	m = updated.(Model)
	assert.Equal(t, 0, m.cursor)

	// Cursor is clamped to the new-chat row plus the two threads.
	for i := 0; i < 5; i++ {
		updated, _ = m.Update(keyMsg("down"))
		m = updated.(Model)
	}
	assert.Equal(t, 2, m.cursor)

	updated, _ = m.Update(keyMsg("up"))
	m = updated.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestPickerEnter_NewChat(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(keyMsg("enter"))
	m = updated.(Model)
	assert.Equal(t, modeChat, m.mode)
	assert.Empty(t, m.session.ThreadID)
}

func TestPickerEnter_ResumeThread(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	store := m.loop.Store()
	path := store.PathFor("t1")
	require.NoError(t, store.SetThreadID(ctx, path, "t1"))
	require.NoError(t, store.Append(ctx, path, journal.RoleUser, "Hello", nil))

	updated, _ := m.Update(threadsMsg{threads: []journal.ThreadInfo{
		{ThreadID: "t1", Label: "Hello", StartedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
	}})
	m = updated.(Model)
	updated, _ = m.Update(keyMsg("down"))
	m = updated.(Model)
	updated, _ = m.Update(keyMsg("enter"))
	m = updated.(Model)

	assert.Equal(t, modeChat, m.mode)
	assert.Equal(t, "t1", m.session.ThreadID)
	require.Len(t, m.session.Messages, 1)
	assert.Equal(t, "Hello", m.session.Messages[0].Text)
}

func TestChatEscReturnsToPicker(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(keyMsg("enter"))
	m = updated.(Model)
	require.Equal(t, modeChat, m.mode)

	updated, cmd := m.Update(keyMsg("esc"))
	m = updated.(Model)
	assert.Equal(t, modePicker, m.mode)
	assert.NotNil(t, cmd, "expected a thread reload command")
}

func TestChatEnter_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(keyMsg("enter"))
	m = updated.(Model)

	updated, cmd := m.Update(keyMsg("enter"))
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Nil(t, cmd)
}

func TestChatBusyBlocksInput(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(keyMsg("enter"))
	m = updated.(Model)
	m.busy = true

	updated, cmd := m.Update(keyMsg("ctrl+n"))
	m = updated.(Model)
	assert.Equal(t, modeChat, m.mode)
	assert.Nil(t, cmd)

	updated, cmd = m.Update(keyMsg("esc"))
	m = updated.(Model)
	assert.Equal(t, modeChat, m.mode)
	assert.Nil(t, cmd)
}

func TestTurnMsgClearsBusy(t *testing.T) {
	m := newTestModel(t)
	m.busy = true
	updated, _ := m.Update(turnMsg{result: &chat.TurnResult{Reply: "hi"}})
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.NoError(t, m.err)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "hello\nworld", wrap("hello world", 6))
	assert.Equal(t, "short", wrap("short", 40))
	// No spaces to break on: hard cut.
	assert.Equal(t, "abcde\nfghij", wrap("abcdefghij", 5))
	assert.Equal(t, "as-is", wrap("as-is", 0))
}

func TestWrap_MultiByteRunes(t *testing.T) {
	// Width counts runes; a hard cut must not split a multi-byte sequence.
	wrapped := wrap("ααααααα", 5)
	assert.Equal(t, "ααααα\nαα", wrapped)
	assert.True(t, utf8.ValidString(wrapped))

	assert.Equal(t, "héllo\nwörld", wrap("héllo wörld", 6))

	wrapped = wrap("こんにちは世界", 4)
	assert.Equal(t, "こんにち\nは世界", wrapped)
	assert.True(t, utf8.ValidString(wrapped))
}

func TestRenderLogEntry_ToolCalls(t *testing.T) {
	lines := renderLogEntry(chat.LogEntry{
		Kind: chat.LogToolCalls,
		Text: "Run steps & tool calls",
		Calls: []agents.ToolCall{
			{ID: "call_1", Type: "mcp", Name: "microsoft_docs_search"},
		},
	})
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "microsoft_docs_search")
	assert.Contains(t, lines[1], "call_1")
}
