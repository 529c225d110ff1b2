package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StampLayout formats completion times for archived entry names. UTC
// with nanosecond precision, so repeated archival of one key over time
// never collides.
const StampLayout = "20060102T150405.000000000Z"

// Archive moves a live entry out of the queue into the processed
// directory under "<key>.<completion-stamp>". The rename ends the
// entry's lifetime atomically; the key is immediately free for
// re-enqueueing. Returns the archived name.
func (s *Store) Archive(key string, completedAt time.Time) (string, error) {
	name := key + "." + completedAt.UTC().Format(StampLayout)
	if err := os.Rename(s.entryPath(key), filepath.Join(s.archiveDir, name)); err != nil {
		return "", fmt.Errorf("store: archive %s: %w", key, err)
	}
	return name, nil
}

// ListArchived returns the names of all archived entries in
// lexicographic order. Diagnostic surface only; processing never reads
// the archive.
func (s *Store) ListArchived() ([]string, error) {
	dirents, err := os.ReadDir(s.archiveDir)
	if err != nil {
		return nil, fmt.Errorf("store: list archive: %w", err)
	}
	var names []string
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		names = append(names, d.Name())
	}
	return names, nil
}
