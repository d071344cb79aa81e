package journal

import "time"

// Role identifies the author of a journal entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one persisted message. The timestamp is assigned locally at
// append time, not by the remote service.
type Entry struct {
	TS        time.Time `json:"ts"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	MessageID *string   `json:"message_id"`
}

// Journal is the on-disk representation of one conversation. ThreadID is
// nil until the remote service has assigned a thread.
type Journal struct {
	ThreadID *string `json:"thread_id"`
	Messages []Entry `json:"messages"`
}

// Empty reports whether the journal has no recorded messages.
func (j *Journal) Empty() bool {
	return len(j.Messages) == 0
}

// FirstUserText returns the text of the first user entry, or "" when the
// journal has no user entry yet.
func (j *Journal) FirstUserText() (string, bool) {
	for _, e := range j.Messages {
		if e.Role == RoleUser {
			return e.Text, true
		}
	}
	return "", false
}
