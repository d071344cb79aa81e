package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, trimLimit int) *Store {
	t.Helper()
	store, err := NewStore(&Config{Dir: t.TempDir(), TrimLimit: trimLimit}, nil)
	require.NoError(t, err)
	return store
}

func strptr(s string) *string {
	return &s
}

func TestNewStore_Defaults(t *testing.T) {
	store, err := NewStore(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Dir())
	assert.Equal(t, 20, store.TrimLimit())
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(&Config{Dir: ""}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory is required")

	_, err = NewStore(&Config{Dir: "memory", TrimLimit: -1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trim limit")
}

func TestPathFor_RoundTrip(t *testing.T) {
	store := newTestStore(t, 0)

	path := store.PathFor("thread_abc123")
	assert.Equal(t, filepath.Join(store.Dir(), "conversation_thread_abc123.json"), path)

	id, ok := store.ThreadIDFromPath(path)
	require.True(t, ok)
	assert.Equal(t, "thread_abc123", id)

	_, ok = store.ThreadIDFromPath(filepath.Join(store.Dir(), "notes.txt"))
	assert.False(t, ok)
	_, ok = store.ThreadIDFromPath(filepath.Join(store.Dir(), "conversation_.json"))
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	store := newTestStore(t, 0)

	j := store.Load(context.Background(), store.PathFor("nope"))
	require.NotNil(t, j)
	assert.Nil(t, j.ThreadID)
	assert.Empty(t, j.Messages)
}

func TestLoad_MalformedFile(t *testing.T) {
	store := newTestStore(t, 0)
	path := store.PathFor("corrupt")

	require.NoError(t, os.MkdirAll(store.Dir(), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"thread_id": "t1", "messages": [{"role":`), 0o644))

	j := store.Load(context.Background(), path)
	require.NotNil(t, j)
	assert.Nil(t, j.ThreadID)
	assert.Empty(t, j.Messages)
}

func TestAppend_ThenLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	require.NoError(t, store.Append(ctx, path, RoleUser, "Hello", strptr("m1")))
	require.NoError(t, store.Append(ctx, path, RoleAssistant, "Hi there", strptr("m2")))

	j := store.Load(ctx, path)
	require.Len(t, j.Messages, 2)

	assert.Equal(t, RoleUser, j.Messages[0].Role)
	assert.Equal(t, "Hello", j.Messages[0].Text)
	require.NotNil(t, j.Messages[0].MessageID)
	assert.Equal(t, "m1", *j.Messages[0].MessageID)

	assert.Equal(t, RoleAssistant, j.Messages[1].Role)
	assert.Equal(t, "Hi there", j.Messages[1].Text)
	require.NotNil(t, j.Messages[1].MessageID)
	assert.Equal(t, "m2", *j.Messages[1].MessageID)

	assert.False(t, j.Messages[0].TS.After(j.Messages[1].TS))
	assert.Equal(t, "UTC", j.Messages[0].TS.Location().String())
}

func TestAppend_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	texts := []string{"a", "b", "c", "d", "e"}
	for i, text := range texts {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, store.Append(ctx, path, role, text, nil))
	}

	j := store.Load(ctx, path)
	require.Len(t, j.Messages, len(texts))
	for i, text := range texts {
		assert.Equal(t, text, j.Messages[i].Text)
	}
}

func TestAppend_ToCorruptFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	require.NoError(t, os.MkdirAll(store.Dir(), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	require.NoError(t, store.Append(ctx, path, RoleUser, "fresh start", nil))

	j := store.Load(ctx, path)
	require.Len(t, j.Messages, 1)
	assert.Equal(t, "fresh start", j.Messages[0].Text)
}

func TestAppend_TrimPolicy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 2)
	path := store.PathFor("t1")

	// Three user/assistant pairs; only the last two entries survive.
	for _, text := range []string{"A", "B", "C", "D", "E", "F"} {
		require.NoError(t, store.Append(ctx, path, RoleUser, text, nil))
	}

	j := store.Load(ctx, path)
	require.Len(t, j.Messages, 2)
	assert.Equal(t, "E", j.Messages[0].Text)
	assert.Equal(t, "F", j.Messages[1].Text)
}

func TestAppend_TrimLimitNeverExceeded(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)
	path := store.PathFor("t1")

	for i := 0; i < 11; i++ {
		require.NoError(t, store.Append(ctx, path, RoleUser, "msg", nil))
		j := store.Load(ctx, path)
		assert.LessOrEqual(t, len(j.Messages), 4)
	}
}

func TestSetThreadID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	require.NoError(t, store.SetThreadID(ctx, path, "t1"))

	j := store.Load(ctx, path)
	require.NotNil(t, j.ThreadID)
	assert.Equal(t, "t1", *j.ThreadID)
	assert.Empty(t, j.Messages)

	// Stamping again preserves messages.
	require.NoError(t, store.Append(ctx, path, RoleUser, "hello", nil))
	require.NoError(t, store.SetThreadID(ctx, path, "t1"))
	j = store.Load(ctx, path)
	require.Len(t, j.Messages, 1)
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	require.NoError(t, store.Append(ctx, path, RoleUser, "hello", nil))
	require.NoError(t, store.Delete(ctx, path))

	j := store.Load(ctx, path)
	assert.Empty(t, j.Messages)

	// Deleting an already-absent journal is not an error.
	require.NoError(t, store.Delete(ctx, path))
}

func TestWrite_FileFormat(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)
	path := store.PathFor("t1")

	require.NoError(t, store.SetThreadID(ctx, path, "t1"))
	require.NoError(t, store.Append(ctx, path, RoleUser, "hello", strptr("m1")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "thread_id")
	assert.Contains(t, raw, "messages")

	var msgs []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["messages"], &msgs))
	require.Len(t, msgs, 1)
	for _, key := range []string{"ts", "role", "text", "message_id"} {
		assert.Contains(t, msgs[0], key)
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)

	require.NoError(t, store.Append(ctx, store.PathFor("t1"), RoleUser, "hello", nil))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conversation_t1.json", entries[0].Name())
}
