// Package chat orchestrates one user turn end to end: post the user
// message to the remote thread, run the agent, fetch the reply, and mirror
// the exchange into the local journal. The journal and the remote service
// are kept in sync by convention (same thread id, same ordering), not by
// transactional guarantee.
package chat

import (
	"fmt"

	"github.com/fyrsmithlabs/agentchat/internal/agents"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

// LogKind classifies a transient activity-log entry.
type LogKind string

const (
	LogInfo      LogKind = "info"
	LogSuccess   LogKind = "success"
	LogWarning   LogKind = "warning"
	LogError     LogKind = "error"
	LogToolCalls LogKind = "tool_calls"
)

// LogEntry is one line of the per-turn activity log shown by the front
// end. Entries are transient display data and are never persisted.
type LogEntry struct {
	Kind  LogKind
	Text  string
	Calls []agents.ToolCall
}

// Message is one rendered line of the conversation view.
type Message struct {
	Role journal.Role
	Text string
}

// Session is the explicit per-session state passed between the front end
// and the interaction loop: the rendered conversation, the owning thread,
// and the activity log. One front-end process operates on one session at a
// time.
type Session struct {
	ThreadID      string
	SelectedLabel string
	Messages      []Message
	Log           []LogEntry
}

// Reset clears the session for a new chat.
func (s *Session) Reset() {
	s.ThreadID = ""
	s.SelectedLabel = ""
	s.Messages = nil
	s.Log = nil
}

// ClearLog drops the activity log, typically at the start of a turn.
func (s *Session) ClearLog() {
	s.Log = nil
}

func (s *Session) logf(kind LogKind, format string, args ...any) {
	s.Log = append(s.Log, LogEntry{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (s *Session) logToolCalls(calls []agents.ToolCall) {
	s.Log = append(s.Log, LogEntry{Kind: LogToolCalls, Text: "Run steps & tool calls", Calls: calls})
}
