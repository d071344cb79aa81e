package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LabelStrategy selects how a conversation label is derived for resume menus.
type LabelStrategy string

const (
	// LabelFirstUser labels a thread with its first user message.
	LabelFirstUser LabelStrategy = "first-user"
	// LabelLastMessage labels a thread with a snippet of its newest message.
	LabelLastMessage LabelStrategy = "last-message"
)

// DefaultLabel is used when a journal has no entry to derive a label from.
const DefaultLabel = "Chat"

const snippetLen = 60

// ThreadInfo describes one resumable conversation.
type ThreadInfo struct {
	ThreadID  string
	Label     string
	StartedAt time.Time
	LastRole  Role
	LastText  string
}

// Started renders the conversation start time for menu display.
func (t ThreadInfo) Started() string {
	return t.StartedAt.Format("2006-01-02 15:04")
}

// Directory is a read-time aggregation over the Store that lists all known
// conversations. Selection downstream is keyed by ThreadID, never by label
// text, since two conversations may share a first user message.
type Directory struct {
	store    *Store
	strategy LabelStrategy
	logger   *zap.Logger
}

// NewDirectory creates a thread directory over the given store.
func NewDirectory(store *Store, strategy LabelStrategy, logger *zap.Logger) (*Directory, error) {
	if store == nil {
		return nil, errors.New("journal store is required")
	}
	switch strategy {
	case "":
		strategy = LabelFirstUser
	case LabelFirstUser, LabelLastMessage:
	default:
		return nil, fmt.Errorf("unknown label strategy: %q", strategy)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{store: store, strategy: strategy, logger: logger}, nil
}

// ListThreads scans the journal directory and returns all resumable
// conversations, newest first. Journals with no thread id or no messages
// are excluded; unreadable journals degrade to empty via the store's
// fail-open load and are therefore excluded too.
func (d *Directory) ListThreads(ctx context.Context) ([]ThreadInfo, error) {
	entries, err := os.ReadDir(d.store.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ThreadInfo{}, nil
		}
		return nil, fmt.Errorf("failed to scan journal directory: %w", err)
	}

	infos := make([]ThreadInfo, 0, len(entries))
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		path := filepath.Join(d.store.Dir(), de.Name())
		if _, ok := d.store.ThreadIDFromPath(path); !ok {
			continue
		}

		j := d.store.Load(ctx, path)
		if j.ThreadID == nil || j.Empty() {
			continue
		}

		last := j.Messages[len(j.Messages)-1]
		infos = append(infos, ThreadInfo{
			ThreadID:  *j.ThreadID,
			Label:     d.label(j),
			StartedAt: j.Messages[0].TS,
			LastRole:  last.Role,
			LastText:  snippet(last.Text),
		})
	}

	// Newest first, by first-entry timestamp. Ties break on thread id so
	// ordering stays stable.
	sort.Slice(infos, func(i, k int) bool {
		if !infos[i].StartedAt.Equal(infos[k].StartedAt) {
			return infos[i].StartedAt.After(infos[k].StartedAt)
		}
		return infos[i].ThreadID < infos[k].ThreadID
	})

	d.logger.Debug("listed threads", zap.Int("count", len(infos)))
	return infos, nil
}

func (d *Directory) label(j *Journal) string {
	switch d.strategy {
	case LabelLastMessage:
		return snippet(j.Messages[len(j.Messages)-1].Text)
	default:
		if text, ok := j.FirstUserText(); ok {
			return text
		}
		return DefaultLabel
	}
}

// snippet shortens long text for menu display.
func snippet(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen-3]) + "..."
}
