package agents

import "fmt"

// Agent is a hosted agent definition. Agents are created fresh per session
// and torn down best-effort; their identity is never persisted locally.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
}

// Thread is a remote conversation context accumulating messages across turns.
type Thread struct {
	ID string `json:"id"`
}

// Message is one message on a thread. Content is a sequence of typed parts;
// only text parts carry conversational payload.
type Message struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one segment of message content.
type ContentPart struct {
	Type string    `json:"type"`
	Text *TextPart `json:"text,omitempty"`
}

// TextPart carries the text value of a text content segment.
type TextPart struct {
	Value string `json:"value"`
}

// Text returns the last non-empty text segment of the message, or "".
func (m *Message) Text() string {
	for i := len(m.Content) - 1; i >= 0; i-- {
		part := m.Content[i]
		if part.Type == "text" && part.Text != nil && part.Text.Value != "" {
			return part.Text.Value
		}
	}
	return ""
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run has finished, one way or another.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// Run is one invocation of an agent against a thread's message history.
type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    RunStatus `json:"status"`
	LastError *RunError `json:"last_error"`
}

// Failed reports whether the run reached the failure state.
func (r *Run) Failed() bool {
	return r.Status == RunFailed
}

// ErrorDetail renders the remote-supplied error for display.
func (r *Run) ErrorDetail() string {
	if r.LastError == nil {
		return string(r.Status)
	}
	return fmt.Sprintf("%s: %s", r.LastError.Code, r.LastError.Message)
}

// RunError is the remote-supplied failure detail of a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunStep is one step of a run, possibly carrying tool invocations.
type RunStep struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	StepDetails StepDetails `json:"step_details"`
}

// StepDetails describes what a run step did.
type StepDetails struct {
	Type      string     `json:"type"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall records the hosted agent invoking an external tool during a run
// step. This is transient display data; it is never persisted.
type ToolCall struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Tool is one entry of a run's toolset.
type Tool struct {
	Type            string `json:"type"`
	ServerLabel     string `json:"server_label,omitempty"`
	ServerURL       string `json:"server_url,omitempty"`
	RequireApproval string `json:"require_approval,omitempty"`
}

// MCPTool configures an MCP tool that requires no human approval before
// invocation.
func MCPTool(label, url string) Tool {
	return Tool{
		Type:            "mcp",
		ServerLabel:     label,
		ServerURL:       url,
		RequireApproval: "never",
	}
}

// APIError is a non-2xx response from the agents service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agents service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("agents service returned %d: %s", e.StatusCode, e.Message)
}
