package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		Endpoint:          server.URL,
		APIVersion:        "2025-05-01",
		APIKey:            "test-key",
		PollInterval:      time.Millisecond,
		RequestsPerSecond: 1000,
	}, nil)
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")

	_, err = NewClient(&Config{}, nil)
	require.Error(t, err)
}

func TestCreateAgent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistants", r.URL.Path)
		assert.Equal(t, "2025-05-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])
		assert.Equal(t, "my-mcp-agent", body["name"])

		tools, ok := body["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		tool := tools[0].(map[string]any)
		assert.Equal(t, "mcp", tool["type"])
		assert.Equal(t, "mslearn", tool["server_label"])
		assert.Equal(t, "never", tool["require_approval"])

		json.NewEncoder(w).Encode(Agent{ID: "asst_1", Name: "my-mcp-agent", Model: "gpt-4o"})
	}))

	agent, err := client.CreateAgent(context.Background(), "gpt-4o", "my-mcp-agent", "be helpful",
		[]Tool{MCPTool("mslearn", "https://learn.microsoft.com/api/mcp")})
	require.NoError(t, err)
	assert.Equal(t, "asst_1", agent.ID)
}

func TestCreateThreadAndMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads":
			json.NewEncoder(w).Encode(Thread{ID: "thread_1"})
		case "/threads/thread_1/messages":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "user", body["role"])
			assert.Equal(t, "Hello", body["content"])
			json.NewEncoder(w).Encode(Message{ID: "msg_1", Role: "user"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	thread, err := client.CreateThread(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thread_1", thread.ID)

	msg, err := client.CreateMessage(ctx, thread.ID, "user", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
}

func TestRunAndWait_PollsToTerminal(t *testing.T) {
	var polls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads/t1/runs":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "asst_1", body["assistant_id"])
			json.NewEncoder(w).Encode(Run{ID: "run_1", Status: RunQueued})
		case r.Method == http.MethodGet && r.URL.Path == "/threads/t1/runs/run_1":
			status := RunInProgress
			if polls.Add(1) >= 3 {
				status = RunCompleted
			}
			json.NewEncoder(w).Encode(Run{ID: "run_1", Status: status})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	run, err := client.RunAndWait(context.Background(), "t1", "asst_1", nil)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestRunAndWait_FailedRun(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Run{
			ID:        "run_1",
			Status:    RunFailed,
			LastError: &RunError{Code: "server_error", Message: "tool unavailable"},
		})
	}))

	run, err := client.RunAndWait(context.Background(), "t1", "asst_1", nil)
	require.NoError(t, err)
	assert.True(t, run.Failed())
	assert.Equal(t, "server_error: tool unavailable", run.ErrorDetail())
}

func TestWaitForRun_ContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Run{ID: "run_1", Status: RunInProgress})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.WaitForRun(ctx, "t1", "run_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListMessages_Order(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []Message{
				{ID: "msg_2", Role: "assistant", Content: []ContentPart{
					{Type: "text", Text: &TextPart{Value: "Hi there"}},
				}},
				{ID: "msg_1", Role: "user", Content: []ContentPart{
					{Type: "text", Text: &TextPart{Value: "Hello"}},
				}},
			},
		})
	}))

	msgs, err := client.ListMessages(context.Background(), "t1", true)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi there", msgs[0].Text())
}

func TestListRunSteps_ToolCalls(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/t1/runs/run_1/steps", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []RunStep{
				{ID: "step_1", Status: "completed", StepDetails: StepDetails{
					Type: "tool_calls",
					ToolCalls: []ToolCall{
						{ID: "call_1", Type: "mcp", Name: "microsoft_docs_search"},
					},
				}},
			},
		})
	}))

	steps, err := client.ListRunSteps(context.Background(), "t1", "run_1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Len(t, steps[0].StepDetails.ToolCalls, 1)
	assert.Equal(t, "microsoft_docs_search", steps[0].StepDetails.ToolCalls[0].Name)
}

func TestDo_ErrorEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "not_found", "message": "no such thread"},
		})
	}))

	_, err := client.ListMessages(context.Background(), "missing", true)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "no such thread", apiErr.Message)
}

func TestMessage_Text(t *testing.T) {
	msg := &Message{Content: []ContentPart{
		{Type: "image_file"},
		{Type: "text", Text: &TextPart{Value: "first"}},
		{Type: "text", Text: &TextPart{Value: "last"}},
	}}
	assert.Equal(t, "last", msg.Text())

	empty := &Message{}
	assert.Equal(t, "", empty.Text())
}
