package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cmdq/internal/entry"
	"cmdq/internal/envsnap"
)

// openTestStore opens a store on a fresh temp root.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

// inlineEntry builds an inline entry whose key is derived from the
// payload with the default digest.
func inlineEntry(t *testing.T, payload string) *entry.Entry {
	t.Helper()
	h, err := entry.NewHasher("")
	require.NoError(t, err)
	e, err := entry.NewInlineEntry([]byte(payload),
		envsnap.Snapshot{{Name: "HOME", Value: "/home/worker"}},
		h, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return e
}

// keyedEntry builds an inline entry and overrides its key, for tests
// that need predictable queue names.
func keyedEntry(t *testing.T, key, payload string) *entry.Entry {
	t.Helper()
	e := inlineEntry(t, payload)
	e.Key = key
	return e
}
