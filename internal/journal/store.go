package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/agentchat/internal/journal"

const filePrefix = "conversation_"

// Config configures the journal store.
type Config struct {
	// Dir is the flat directory holding one JSON file per thread.
	Dir string

	// TrimLimit bounds the retained entry count, applied on every append
	// with oldest entries dropped first. 0 disables trimming.
	TrimLimit int
}

// DefaultConfig returns sensible defaults. A trim limit of 20 keeps the
// last 10 user/assistant pairs.
func DefaultConfig() *Config {
	return &Config{
		Dir:       "memory",
		TrimLimit: 20,
	}
}

// Store provides durable persistence of conversation journals, addressed
// by thread identifier. A single logical writer per thread is assumed;
// concurrent writers race and the last write wins.
type Store struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time

	tracer        trace.Tracer
	meter         metric.Meter
	appendCounter metric.Int64Counter
	resetCounter  metric.Int64Counter
}

// NewStore creates a journal store rooted at cfg.Dir.
func NewStore(cfg *Config, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Dir == "" {
		return nil, errors.New("journal directory is required")
	}
	if cfg.TrimLimit < 0 {
		return nil, fmt.Errorf("invalid trim limit: %d", cfg.TrimLimit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		config: cfg,
		logger: logger,
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()

	return s, nil
}

func (s *Store) initMetrics() {
	var err error

	s.appendCounter, err = s.meter.Int64Counter(
		"agentchat.journal.appends_total",
		metric.WithDescription("Total number of journal entries appended"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		s.logger.Warn("failed to create append counter", zap.Error(err))
	}

	s.resetCounter, err = s.meter.Int64Counter(
		"agentchat.journal.resets_total",
		metric.WithDescription("Total number of unreadable journals reset to empty"),
		metric.WithUnit("{reset}"),
	)
	if err != nil {
		s.logger.Warn("failed to create reset counter", zap.Error(err))
	}
}

// Dir returns the journal directory.
func (s *Store) Dir() string {
	return s.config.Dir
}

// TrimLimit returns the configured retention bound (0 = unlimited).
func (s *Store) TrimLimit() int {
	return s.config.TrimLimit
}

// PathFor maps a thread identifier to its journal file path. The mapping is
// deterministic and injective; no I/O is performed.
func (s *Store) PathFor(threadID string) string {
	return filepath.Join(s.config.Dir, filePrefix+threadID+".json")
}

// ThreadIDFromPath inverts PathFor. Returns false for paths that do not
// name a journal file.
func (s *Store) ThreadIDFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
	if id == "" {
		return "", false
	}
	return id, true
}

// Load reads the journal at path. A missing or unparsable file yields a
// fresh empty journal; read failures never propagate to the caller. The two
// cases are distinguished only for diagnostic logging.
func (s *Store) Load(ctx context.Context, path string) *Journal {
	_, span := s.tracer.Start(ctx, "journal.load")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("journal unreadable, starting fresh",
				zap.String("path", path),
				zap.Error(err),
			)
			s.countReset(ctx, "unreadable")
		}
		return &Journal{Messages: []Entry{}}
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		s.logger.Debug("journal malformed, starting fresh",
			zap.String("path", path),
			zap.Error(err),
		)
		s.countReset(ctx, "malformed")
		return &Journal{Messages: []Entry{}}
	}
	if j.Messages == nil {
		j.Messages = []Entry{}
	}
	return &j
}

// Append adds one entry with a store-assigned UTC timestamp, applies the
// trim policy, and durably replaces the file. Write failures propagate; a
// failed write never leaves a partial file in place.
func (s *Store) Append(ctx context.Context, path string, role Role, text string, messageID *string) error {
	ctx, span := s.tracer.Start(ctx, "journal.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", path),
		attribute.String("role", string(role)),
	)

	j := s.Load(ctx, path)
	j.Messages = append(j.Messages, Entry{
		TS:        s.now().UTC(),
		Role:      role,
		Text:      text,
		MessageID: messageID,
	})
	if limit := s.config.TrimLimit; limit > 0 && len(j.Messages) > limit {
		j.Messages = j.Messages[len(j.Messages)-limit:]
	}

	if err := s.write(path, j); err != nil {
		span.RecordError(err)
		return err
	}

	if s.appendCounter != nil {
		s.appendCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("role", string(role)),
		))
	}
	s.logger.Debug("appended journal entry",
		zap.String("path", path),
		zap.String("role", string(role)),
		zap.Int("entries", len(j.Messages)),
	)
	return nil
}

// SetThreadID stamps the journal with its owning thread identifier,
// preserving any existing messages. Used once at conversation start; writing
// a placeholder with an empty message list is valid.
func (s *Store) SetThreadID(ctx context.Context, path, threadID string) error {
	ctx, span := s.tracer.Start(ctx, "journal.set_thread_id")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", threadID))

	j := s.Load(ctx, path)
	j.ThreadID = &threadID
	if err := s.write(path, j); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Delete removes the journal's backing file. Deleting an absent journal is
// not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, span := s.tracer.Start(ctx, "journal.delete")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.RecordError(err)
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	s.logger.Debug("deleted journal", zap.String("path", path))
	return nil
}

// write atomically replaces the journal file via temp-file-then-rename so a
// reader never observes a half-written journal.
func (s *Store) write(path string, j *Journal) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp journal: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp journal: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}

func (s *Store) countReset(ctx context.Context, cause string) {
	if s.resetCounter != nil {
		s.resetCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cause", cause),
		))
	}
}
