package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdq/internal/entry"
	"cmdq/internal/store"
)

func seedEntry(t *testing.T, st *store.Store, key string) {
	t.Helper()
	require.NoError(t, st.TryInsert(&entry.Entry{
		Key:        key,
		Kind:       entry.KindInline,
		Payload:    []byte("echo " + key + "\n"),
		EnqueuedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}))
}

func TestShowCommand_EmptyQueue(t *testing.T) {
	setTestRoot(t)

	stdout, _, err := execute(t, "show")
	require.NoError(t, err, "an empty queue is not an error for show")
	assert.Contains(t, stdout, "queue is empty")
}

func TestShowCommand_ListsEntriesInKeyOrder(t *testing.T) {
	root := setTestRoot(t)
	st, err := store.Open(root)
	require.NoError(t, err)
	seedEntry(t, st, "b-job")
	seedEntry(t, st, "a-job")

	stdout, _, err := execute(t, "show")
	require.NoError(t, err)

	aIdx := strings.Index(stdout, "a-job")
	bIdx := strings.Index(stdout, "b-job")
	require.GreaterOrEqual(t, aIdx, 0)
	require.GreaterOrEqual(t, bIdx, 0)
	assert.Less(t, aIdx, bIdx, "rows follow processing order")
	assert.Contains(t, stdout, "inline")
	assert.Contains(t, stdout, "2026-03-14T09:26:53Z")
}

func TestShowCommand_JSON(t *testing.T) {
	root := setTestRoot(t)
	st, err := store.Open(root)
	require.NoError(t, err)
	seedEntry(t, st, "a-job")

	stdout, _, err := execute(t, "--format", "json", "show")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "a-job", resp.Data.Entries[0].Key)
	assert.Equal(t, "inline", resp.Data.Entries[0].Kind)
}

func TestShowCommand_CorruptEntryListed(t *testing.T) {
	root := setTestRoot(t)
	_, err := store.Open(root)
	require.NoError(t, err)

	// A published artifact that no longer parses still occupies its key
	path := filepath.Join(root, store.QueueDirName, "broken-job")
	require.NoError(t, os.WriteFile(path, []byte("not an artifact\n"), 0700))

	stdout, _, err := execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "broken-job")
	assert.Contains(t, stdout, "corrupt")
}
