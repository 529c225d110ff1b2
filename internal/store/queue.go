package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"cmdq/internal/entry"
)

// ErrDuplicate reports that a live entry already exists for a key.
var ErrDuplicate = errors.New("store: duplicate entry")

// tmpPrefix marks in-flight artifact builds. Dot-prefixed names are
// invisible to List, so a half-written temp is never observed.
const tmpPrefix = ".tmp-"

// TryInsert publishes an entry into the queue. The artifact is built
// completely in a temp file, synced, and marked executable before a
// hard link drops it at its final name. link(2) fails with EEXIST when
// the key is already live, which makes first-writer-wins atomic without
// any locking.
func (s *Store) TryInsert(e *entry.Entry) error {
	data, err := entry.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", e.Key, err)
	}

	tmp := filepath.Join(s.queueDir, tmpPrefix+uuid.NewString())
	if err := writeArtifact(tmp, data); err != nil {
		return fmt.Errorf("store: insert %s: %w", e.Key, err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.entryPath(e.Key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDuplicate, e.Key)
		}
		return fmt.Errorf("store: insert %s: %w", e.Key, err)
	}
	return nil
}

func writeArtifact(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// The owner-execute bit marks the artifact fully written; List
	// ignores files without it.
	return os.Chmod(path, 0700)
}

// List returns the keys of all live entries in lexicographic order.
// Dot-prefixed names and files without the owner-execute bit are
// in-flight or foreign and are skipped.
func (s *Store) List() ([]string, error) {
	dirents, err := os.ReadDir(s.queueDir)
	if err != nil {
		return nil, fmt.Errorf("store: list queue: %w", err)
	}
	var keys []string
	for _, d := range dirents {
		if !visible(d) {
			continue
		}
		keys = append(keys, d.Name())
	}
	return keys, nil
}

func visible(d fs.DirEntry) bool {
	if strings.HasPrefix(d.Name(), ".") {
		return false
	}
	if !d.Type().IsRegular() {
		return false
	}
	info, err := d.Info()
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0100 != 0
}

// Read loads and parses the live entry for a key. The returned entry
// carries the key; the artifact itself does not store it.
func (s *Store) Read(key string) (*entry.Entry, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	e, err := entry.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	e.Key = key
	return e, nil
}

// Remove deletes the live entry for a key. Removing an absent key is
// an error; callers that want idempotent removal check fs.ErrNotExist.
func (s *Store) Remove(key string) error {
	if err := os.Remove(s.entryPath(key)); err != nil {
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

// Clear removes every live entry and any stale temp artifacts left by
// interrupted inserts. It returns the number of live entries removed.
func (s *Store) Clear() (int, error) {
	dirents, err := os.ReadDir(s.queueDir)
	if err != nil {
		return 0, fmt.Errorf("store: clear queue: %w", err)
	}
	removed := 0
	for _, d := range dirents {
		name := d.Name()
		stale := strings.HasPrefix(name, tmpPrefix)
		if !visible(d) && !stale {
			continue
		}
		if err := os.Remove(filepath.Join(s.queueDir, name)); err != nil {
			return removed, fmt.Errorf("store: clear %s: %w", name, err)
		}
		if !stale {
			removed++
		}
	}
	return removed, nil
}
