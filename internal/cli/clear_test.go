package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdq/internal/store"
)

func TestClearCommand_RemovesEverything(t *testing.T) {
	root := setTestRoot(t)
	st, err := store.Open(root)
	require.NoError(t, err)
	seedEntry(t, st, "a-job")
	seedEntry(t, st, "b-job")

	// Leftover from a crashed enqueue
	stale := filepath.Join(root, store.QueueDirName, ".tmp-dead")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0600))

	stdout, _, err := execute(t, "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed 2 entry(s)")

	keys, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale temp artifacts are swept")
}

func TestClearCommand_EmptyQueue(t *testing.T) {
	setTestRoot(t)

	stdout, _, err := execute(t, "clear")
	require.NoError(t, err, "clearing an empty queue succeeds")
	assert.Contains(t, stdout, "removed 0 entry(s)")
}
