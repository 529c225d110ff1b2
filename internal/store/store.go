// Package store persists the queue on the filesystem. The working root
// holds four locations: queue/ for live entries (named by key),
// processed/ for archived entries, command_logs/ for per-key execution
// logs, and history.db, a diagnostic index of completed work.
//
// Queue semantics lean entirely on the filesystem: publish is a link(2)
// into place (create-if-absent, so duplicate keys lose atomically) and
// archive is a rename(2) out of the queue. Listing is a plain directory
// read. No daemon, no shared state beyond the directory tree.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file names under the working root.
const (
	QueueDirName   = "queue"
	ArchiveDirName = "processed"
	LogDirName     = "command_logs"
	HistoryDBName  = "history.db"
)

// Store is a handle on an opened working root.
type Store struct {
	root       string
	queueDir   string
	archiveDir string
	logDir     string
}

// Open ensures the layout under root exists and returns a handle on it.
// It is idempotent over an existing root.
func Open(root string) (*Store, error) {
	s := &Store{
		root:       root,
		queueDir:   filepath.Join(root, QueueDirName),
		archiveDir: filepath.Join(root, ArchiveDirName),
		logDir:     filepath.Join(root, LogDirName),
	}
	for _, dir := range []string{s.root, s.queueDir, s.archiveDir, s.logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the working root this store was opened on.
func (s *Store) Root() string {
	return s.root
}

// LogPath returns the append-only log file for a key. The file is
// shared by every execution of that key, across archive cycles.
func (s *Store) LogPath(key string) string {
	return filepath.Join(s.logDir, key+".log")
}

// HistoryPath returns the location of the sqlite history index.
func (s *Store) HistoryPath() string {
	return filepath.Join(s.root, HistoryDBName)
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.queueDir, key)
}
