package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentchat/internal/agents"
	"github.com/fyrsmithlabs/agentchat/internal/journal"
)

const instrumentationName = "github.com/fyrsmithlabs/agentchat/internal/chat"

// AgentService is the slice of the agents client the loop consumes.
type AgentService interface {
	CreateAgent(ctx context.Context, model, name, instructions string, tools []agents.Tool) (*agents.Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateThread(ctx context.Context) (*agents.Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (*agents.Message, error)
	RunAndWait(ctx context.Context, threadID, agentID string, tools []agents.Tool) (*agents.Run, error)
	ListMessages(ctx context.Context, threadID string, desc bool) ([]agents.Message, error)
	ListRunSteps(ctx context.Context, threadID, runID string) ([]agents.RunStep, error)
}

// Config configures the interaction loop.
type Config struct {
	// Model is the model deployment used for per-turn agents (required).
	Model string

	// AgentName is the display name of created agents.
	AgentName string

	// Instructions is the natural-language system instruction.
	Instructions string

	// Tools is the toolset attached to every agent and run.
	Tools []agents.Tool
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	TurnID      string
	RunID       string
	Status      agents.RunStatus
	ErrorDetail string
	Reply       string
	ToolCalls   []agents.ToolCall
}

// Failed reports whether the run reached the failure state. A failed turn
// leaves only the user entry in the journal.
func (r *TurnResult) Failed() bool {
	return r.Status == agents.RunFailed
}

// Loop sequences user turns against the agents service and the journal
// store. Turns are strictly sequential: each is processed to completion
// before the next begins.
type Loop struct {
	config *Config
	svc    AgentService
	store  *journal.Store
	logger *zap.Logger
	tracer trace.Tracer
}

// NewLoop creates an interaction loop.
func NewLoop(cfg *Config, svc AgentService, store *journal.Store, logger *zap.Logger) (*Loop, error) {
	if cfg == nil || cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if svc == nil {
		return nil, errors.New("agent service is required")
	}
	if store == nil {
		return nil, errors.New("journal store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		config: cfg,
		svc:    svc,
		store:  store,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

// Store exposes the journal store backing this loop.
func (l *Loop) Store() *journal.Store {
	return l.store
}

// Resume points the session at an existing thread and loads its journal
// into the conversation view. Remote state is reused as-is; nothing is
// recreated on the service.
func (l *Loop) Resume(ctx context.Context, sess *Session, threadID string) {
	sess.Reset()
	sess.ThreadID = threadID

	j := l.store.Load(ctx, l.store.PathFor(threadID))
	for _, e := range j.Messages {
		sess.Messages = append(sess.Messages, Message{Role: e.Role, Text: e.Text})
	}
	if label, ok := j.FirstUserText(); ok {
		sess.SelectedLabel = label
	}
	l.logger.Info("resumed thread",
		zap.String("thread_id", threadID),
		zap.Int("journal_entries", len(j.Messages)),
	)
}

// EnsureThread creates a remote thread for a brand-new conversation and
// stamps the journal with its identifier. No-op when the session already
// has a thread.
func (l *Loop) EnsureThread(ctx context.Context, sess *Session) error {
	if sess.ThreadID != "" {
		return nil
	}

	sess.logf(LogInfo, "Creating a new thread...")
	thread, err := l.svc.CreateThread(ctx)
	if err != nil {
		sess.logf(LogError, "Thread creation failed: %v", err)
		return fmt.Errorf("failed to create thread: %w", err)
	}
	sess.ThreadID = thread.ID
	sess.logf(LogSuccess, "New thread: %s", thread.ID)

	// Local placeholder write; persistence is an optimization, so a
	// failure here warns without aborting the conversation.
	if err := l.store.SetThreadID(ctx, l.store.PathFor(thread.ID), thread.ID); err != nil {
		sess.logf(LogWarning, "Could not stamp journal: %v", err)
		l.logger.Warn("failed to stamp journal", zap.String("thread_id", thread.ID), zap.Error(err))
	}
	return nil
}

// Turn runs one user turn to completion. A returned error means the turn
// was aborted by a remote call failure; the thread and journal remain
// usable for subsequent turns. A run that reaches the failure status is not
// an error: it is reported through the result and only the user entry is
// persisted.
func (l *Loop) Turn(ctx context.Context, sess *Session, input string) (*TurnResult, error) {
	turnID := uuid.NewString()
	ctx, span := l.tracer.Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(attribute.String("turn_id", turnID))

	logger := l.logger.With(zap.String("turn_id", turnID))

	if err := l.EnsureThread(ctx, sess); err != nil {
		return nil, err
	}
	path := l.store.PathFor(sess.ThreadID)
	result := &TurnResult{TurnID: turnID}

	sess.logf(LogInfo, "Creating agent...")
	agent, err := l.svc.CreateAgent(ctx, l.config.Model, l.config.AgentName, l.config.Instructions, l.config.Tools)
	if err != nil {
		sess.logf(LogError, "Agent creation failed: %v", err)
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	sess.logf(LogSuccess, "Agent created: %s", agent.Name)
	defer l.deleteAgent(ctx, sess, logger, agent.ID)

	sess.logf(LogInfo, "Sending message...")
	userMsg, err := l.svc.CreateMessage(ctx, sess.ThreadID, string(journal.RoleUser), input)
	if err != nil {
		sess.logf(LogError, "Message send failed: %v", err)
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	sess.Messages = append(sess.Messages, Message{Role: journal.RoleUser, Text: input})
	l.persist(ctx, sess, logger, path, journal.RoleUser, input, &userMsg.ID)
	sess.logf(LogSuccess, "Message sent.")

	sess.logf(LogInfo, "Starting run...")
	run, err := l.svc.RunAndWait(ctx, sess.ThreadID, agent.ID, l.config.Tools)
	if err != nil {
		sess.logf(LogError, "Run failed to complete: %v", err)
		return nil, fmt.Errorf("run did not complete: %w", err)
	}
	result.RunID = run.ID
	result.Status = run.Status

	if run.Failed() {
		result.ErrorDetail = run.ErrorDetail()
		sess.logf(LogError, "Run %s failed: %s", run.ID, result.ErrorDetail)
		logger.Warn("run failed",
			zap.String("run_id", run.ID),
			zap.String("detail", result.ErrorDetail),
		)
		return result, nil
	}
	sess.logf(LogSuccess, "Run %s: %s", run.ID, run.Status)

	result.ToolCalls = l.collectToolCalls(ctx, sess, logger, run.ID)

	reply, replyID := l.latestAssistant(ctx, sess, logger)
	result.Reply = reply
	if reply != "" {
		sess.Messages = append(sess.Messages, Message{Role: journal.RoleAssistant, Text: reply})
		l.persist(ctx, sess, logger, path, journal.RoleAssistant, reply, replyID)
	}
	return result, nil
}

// NewChat resets the session and logs the transition.
func (l *Loop) NewChat(sess *Session) {
	sess.Reset()
	l.logger.Debug("session reset for new chat")
}

// DeleteConversation removes the local journal for a thread. The remote
// thread is left untouched; the service owns its lifecycle.
func (l *Loop) DeleteConversation(ctx context.Context, threadID string) error {
	return l.store.Delete(ctx, l.store.PathFor(threadID))
}

// persist appends one entry to the journal. Write failures are surfaced as
// warnings and do not abort the turn; the in-memory view keeps the
// exchange either way.
func (l *Loop) persist(ctx context.Context, sess *Session, logger *zap.Logger, path string, role journal.Role, text string, messageID *string) {
	if err := l.store.Append(ctx, path, role, text, messageID); err != nil {
		sess.logf(LogWarning, "Could not save %s message locally: %v", role, err)
		logger.Warn("journal append failed",
			zap.String("role", string(role)),
			zap.Error(err),
		)
	}
}

// collectToolCalls gathers the run's tool invocations for transparency
// display. Step listing failures degrade to an empty trace.
func (l *Loop) collectToolCalls(ctx context.Context, sess *Session, logger *zap.Logger, runID string) []agents.ToolCall {
	steps, err := l.svc.ListRunSteps(ctx, sess.ThreadID, runID)
	if err != nil {
		sess.logf(LogWarning, "Could not fetch run steps: %v", err)
		logger.Warn("run step listing failed", zap.Error(err))
		return nil
	}

	var calls []agents.ToolCall
	for _, step := range steps {
		calls = append(calls, step.StepDetails.ToolCalls...)
	}
	if len(calls) > 0 {
		sess.logToolCalls(calls)
	}
	return calls
}

// latestAssistant returns the newest assistant message with non-empty
// text, relying on the service's reverse-chronological listing.
func (l *Loop) latestAssistant(ctx context.Context, sess *Session, logger *zap.Logger) (string, *string) {
	sess.logf(LogInfo, "Retrieving assistant's response...")
	msgs, err := l.svc.ListMessages(ctx, sess.ThreadID, true)
	if err != nil {
		sess.logf(LogWarning, "Could not fetch messages: %v", err)
		logger.Warn("message listing failed", zap.Error(err))
		return "", nil
	}

	for _, m := range msgs {
		if m.Role == string(journal.RoleAssistant) {
			if text := m.Text(); text != "" {
				sess.logf(LogSuccess, "Response received.")
				id := m.ID
				return text, &id
			}
		}
	}
	sess.logf(LogWarning, "No assistant response found.")
	return "", nil
}

// deleteAgent tears down the per-turn agent. Best-effort: failure is
// logged and never affects the turn outcome.
func (l *Loop) deleteAgent(ctx context.Context, sess *Session, logger *zap.Logger, agentID string) {
	if err := l.svc.DeleteAgent(ctx, agentID); err != nil {
		sess.logf(LogWarning, "Could not delete agent: %v", err)
		logger.Warn("agent deletion failed", zap.String("agent_id", agentID), zap.Error(err))
		return
	}
	sess.logf(LogInfo, "Agent deleted.")
}
