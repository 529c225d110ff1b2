package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdq/internal/entry"
	"cmdq/internal/envsnap"
	"cmdq/internal/lock"
	"cmdq/internal/store"
	"cmdq/internal/testutil"
)

var testBase = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return s
}

// enqueueInline inserts an inline entry under a fixed key so tests
// control queue order directly.
func enqueueInline(t *testing.T, s *store.Store, key, payload string, env envsnap.Snapshot) {
	t.Helper()
	h, err := entry.NewHasher("")
	require.NoError(t, err)
	e, err := entry.NewInlineEntry([]byte(payload), env, h, testBase)
	require.NoError(t, err)
	e.Key = key
	require.NoError(t, s.TryInsert(e))
}

// appendScript returns an inline payload that appends text to path.
func appendScript(text, path string) string {
	return fmt.Sprintf("#!/bin/sh\necho %s >> %s\n", text, path)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestProcess_ExecutesInKeyOrder(t *testing.T) {
	s := openTestStore(t)
	out := filepath.Join(t.TempDir(), "order.txt")

	// Enqueue out of order; the pass must run the snapshot sorted by key.
	enqueueInline(t, s, "c-last", appendScript("c-last", out), nil)
	enqueueInline(t, s, "a-first", appendScript("a-first", out), nil)
	enqueueInline(t, s, "b-middle", appendScript("b-middle", out), nil)

	p := New(s, nil, nil)
	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, []string{"a-first", "b-middle", "c-last"}, readLines(t, out))

	keys, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, keys, "every processed entry leaves the queue")

	archived, err := s.ListArchived()
	require.NoError(t, err)
	assert.Len(t, archived, 3)
}

func TestProcess_EmptyQueue(t *testing.T) {
	s := openTestStore(t)

	_, err := New(s, nil, nil).Process(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyQueue)

	// The failed pass must not leave the lock behind.
	h, err := lock.Acquire(s.Root(), lock.Owner{Token: "after", PID: os.Getpid(), AcquiredAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestProcess_LockHeld(t *testing.T) {
	s := openTestStore(t)
	enqueueInline(t, s, "waiting", "#!/bin/sh\ntrue\n", nil)

	h, err := lock.Acquire(s.Root(), lock.Owner{Token: "other-pass", PID: os.Getpid(), AcquiredAt: time.Now()})
	require.NoError(t, err)
	defer h.Release()

	_, err = New(s, nil, nil).Process(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, lock.ErrHeld)

	keys, listErr := s.List()
	require.NoError(t, listErr)
	assert.Equal(t, []string{"waiting"}, keys, "a refused pass touches nothing")
}

func TestProcess_FailureContinuesPass(t *testing.T) {
	s := openTestStore(t)
	out := filepath.Join(t.TempDir(), "out.txt")

	enqueueInline(t, s, "a-broken", "#!/bin/sh\nexit 7\n", nil)
	enqueueInline(t, s, "b-healthy", appendScript("survived", out), nil)

	res, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err, "a failing action must not fail the pass")
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, []string{"survived"}, readLines(t, out), "entries after a failure still run")

	archived, err := s.ListArchived()
	require.NoError(t, err)
	assert.Len(t, archived, 2, "failed entries are archived like successful ones")
}

func TestProcess_LogMarkersDeterministic(t *testing.T) {
	s := openTestStore(t)
	enqueueInline(t, s, "greeter", "#!/bin/sh\necho hello\n", nil)

	clock := testutil.NewFixedClock(testBase, time.Second)
	p := New(s, clock, NewFixedGenerator("pass-1"))

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pass-1", res.Token)
	assert.Equal(t, 3*time.Second, res.Duration)

	// Clock reads: pass start, entry start, entry completion, pass end.
	data, err := os.ReadFile(s.LogPath("greeter"))
	require.NoError(t, err)
	want := "=== cmdq start 20260102T150406.000000000Z ===\n" +
		"hello\n" +
		"=== cmdq end 20260102T150407.000000000Z ===\n"
	assert.Equal(t, want, string(data))

	archived, err := s.ListArchived()
	require.NoError(t, err)
	assert.Equal(t, []string{"greeter.20260102T150407.000000000Z"}, archived,
		"archive stamp matches the end marker stamp")
}

func TestProcess_ReenqueueAppendsToSameLog(t *testing.T) {
	s := openTestStore(t)
	payload := "#!/bin/sh\necho run\n"

	enqueueInline(t, s, "recurring", payload, nil)
	_, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)

	// Completion frees the key; the next run shares the log file.
	enqueueInline(t, s, "recurring", payload, nil)
	_, err = New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(s.LogPath("recurring"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "=== cmdq start "))
	assert.Equal(t, 2, strings.Count(string(data), "=== cmdq end "))

	archived, err := s.ListArchived()
	require.NoError(t, err)
	assert.Len(t, archived, 2, "each completion gets its own archive name")
}

func TestProcess_CorruptEntryArchivedUnexecuted(t *testing.T) {
	s := openTestStore(t)
	mangled := filepath.Join(s.Root(), store.QueueDirName, "mangled")
	require.NoError(t, os.WriteFile(mangled, []byte("this is not an artifact\n"), 0700))

	res, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Corrupt)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, keys, "a corrupt entry must not wedge the queue")

	data, err := os.ReadFile(s.LogPath("mangled"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "cmdq: unreadable entry:")
	assert.Contains(t, string(data), "=== cmdq end ")
}

func TestProcess_InterruptLeavesEntryQueued(t *testing.T) {
	s := openTestStore(t)
	pathEnv := envsnap.Snapshot{{Name: "PATH", Value: "/usr/bin:/bin"}}
	enqueueInline(t, s, "a-sleeper", "#!/bin/sh\nsleep 0.5\n", pathEnv)
	enqueueInline(t, s, "b-after", "#!/bin/sh\ntrue\n", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New(s, nil, nil).Process(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a-sleeper", "b-after"}, keys,
		"the in-flight entry and everything behind it stay queued")

	data, err := os.ReadFile(s.LogPath("a-sleeper"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== cmdq start ")
	assert.NotContains(t, string(data), "=== cmdq end ",
		"an interrupted execution leaves no end marker")

	// The lock must be free for the next pass.
	res, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed, "the next pass re-runs the interrupted entry")
}

func TestProcess_EnvAllowlist(t *testing.T) {
	t.Setenv("CMDQ_TEST_LEAK", "host-value")

	s := openTestStore(t)
	out := filepath.Join(t.TempDir(), "env.txt")
	env := envsnap.Snapshot{{Name: "PROBE", Value: "captured"}}
	payload := fmt.Sprintf("#!/bin/sh\necho \"probe=$PROBE leak=$CMDQ_TEST_LEAK\" > %s\n", out)
	enqueueInline(t, s, "env-check", payload, env)

	_, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"probe=captured leak="}, readLines(t, out),
		"the child sees captured variables and nothing from the host")
}

func TestProcess_InlineWithoutShebangFallsBackToShell(t *testing.T) {
	s := openTestStore(t)
	out := filepath.Join(t.TempDir(), "out.txt")
	enqueueInline(t, s, "bare-lines", fmt.Sprintf("echo via-shell > %s\n", out), nil)

	res, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Failed, "payloads without an interpreter line run under /bin/sh")

	assert.Equal(t, []string{"via-shell"}, readLines(t, out))
}

func TestProcess_FileKindRereadsAtExecution(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "job.sh")

	require.NoError(t, os.WriteFile(script, []byte(appendScript("original", out)), 0755))
	e, err := entry.NewFileEntry(script, nil, testBase)
	require.NoError(t, err)
	require.NoError(t, s.TryInsert(e))

	// The queue holds a pointer, not a copy: edits land in the run.
	require.NoError(t, os.WriteFile(script, []byte(appendScript("edited", out)), 0755))

	_, err = New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"edited"}, readLines(t, out))
}

func TestProcess_FileKindMissingAtExecution(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "doomed.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntrue\n"), 0755))

	e, err := entry.NewFileEntry(script, nil, testBase)
	require.NoError(t, err)
	require.NoError(t, s.TryInsert(e))
	require.NoError(t, os.Remove(script))

	res, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err, "a vanished target fails the entry, not the pass")
	assert.Equal(t, 1, res.Failed)

	data, err := os.ReadFile(s.LogPath(e.Key))
	require.NoError(t, err)
	assert.Contains(t, string(data), "cmdq: action did not start:")

	archived, err := s.ListArchived()
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestProcess_HistoryRecordsCompletions(t *testing.T) {
	s := openTestStore(t)
	enqueueInline(t, s, "alpha", "#!/bin/sh\ntrue\n", nil)
	enqueueInline(t, s, "beta", "#!/bin/sh\ntrue\n", nil)

	_, err := New(s, nil, nil).Process(context.Background())
	require.NoError(t, err)

	hist, err := store.OpenHistory(s.HistoryPath())
	require.NoError(t, err)
	defer hist.Close()

	recs, err := hist.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "beta", recs[0].Key, "newest completion first")
	assert.Equal(t, "alpha", recs[1].Key)
	assert.Equal(t, s.LogPath("beta"), recs[0].LogPath)
	assert.Contains(t, recs[0].ArchivedName, "beta.")
}

func TestUUIDv7Generator_DistinctSortableTokens(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.LessOrEqual(t, a, b, "v7 tokens sort by mint time")
}

func TestFixedGenerator_SequenceThenPanic(t *testing.T) {
	gen := NewFixedGenerator("one", "two")
	assert.Equal(t, "one", gen.Generate())
	assert.Equal(t, "two", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
