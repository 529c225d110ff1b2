package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdq/internal/store"
)

func seedHistory(t *testing.T, root string) {
	t.Helper()
	st, err := store.Open(root)
	require.NoError(t, err)
	hist, err := store.OpenHistory(st.HistoryPath())
	require.NoError(t, err)
	defer hist.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, hist.Record(context.Background(), store.HistoryRecord{
		Key:          "old-job",
		ArchivedName: "old-job.20260314T090000.000000000Z",
		CompletedAt:  base,
		LogPath:      st.LogPath("old-job"),
	}))
	require.NoError(t, hist.Record(context.Background(), store.HistoryRecord{
		Key:          "new-job",
		ArchivedName: "new-job.20260314T091500.000000000Z",
		CompletedAt:  base.Add(15 * time.Minute),
		LogPath:      st.LogPath("new-job"),
	}))
}

func TestHistoryCommand_NoHistory(t *testing.T) {
	setTestRoot(t)

	stdout, _, err := execute(t, "history")
	require.NoError(t, err, "an empty index is not an error")
	assert.Contains(t, stdout, "no history")
}

func TestHistoryCommand_NewestFirst(t *testing.T) {
	root := setTestRoot(t)
	seedHistory(t, root)

	stdout, _, err := execute(t, "history")
	require.NoError(t, err)

	newIdx := strings.Index(stdout, "new-job")
	oldIdx := strings.Index(stdout, "old-job")
	require.GreaterOrEqual(t, newIdx, 0)
	require.GreaterOrEqual(t, oldIdx, 0)
	assert.Less(t, newIdx, oldIdx, "most recent completion prints first")
}

func TestHistoryCommand_Limit(t *testing.T) {
	root := setTestRoot(t)
	seedHistory(t, root)

	stdout, _, err := execute(t, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "new-job")
	assert.NotContains(t, stdout, "old-job")
}

func TestHistoryCommand_JSON(t *testing.T) {
	root := setTestRoot(t)
	seedHistory(t, root)

	stdout, _, err := execute(t, "--format", "json", "history")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []HistoryRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "new-job", resp.Data[0].Key)
	assert.Equal(t, "new-job.20260314T091500.000000000Z", resp.Data[0].ArchivedAs)
	assert.Equal(t, "2026-03-14T09:15:00Z", resp.Data[0].CompletedAt)
}
