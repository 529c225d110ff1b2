// Package lock implements the pass lock that keeps queue processing
// single-flight. The lock is a directory: os.Mkdir either creates it or
// fails because it exists, and the kernel guarantees only one caller
// wins.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DirName is the lock directory created under the working root.
	DirName = "lock.dir"

	ownerFile = "owner"
)

// ErrHeld reports that another pass currently owns the lock.
var ErrHeld = errors.New("lock: already held")

// Owner identifies the pass holding the lock. The token is the pass
// token minted when processing starts; it also appears in command logs
// so a stuck lock can be matched to the pass that left it behind.
type Owner struct {
	Token      string
	PID        int
	AcquiredAt time.Time
}

// Handle is a held lock. Release it when the pass ends, on every path.
type Handle struct {
	dir      string
	owner    Owner
	released bool
}

// Acquire takes the pass lock under root. A second acquire, from this
// process or any other, fails with ErrHeld until the holder releases.
func Acquire(root string, owner Owner) (*Handle, error) {
	dir := filepath.Join(root, DirName)
	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if cur, readErr := readOwner(dir); readErr == nil {
				return nil, fmt.Errorf("%w: pass %s (pid %d) since %s",
					ErrHeld, cur.Token, cur.PID, cur.AcquiredAt.Format(time.RFC3339))
			}
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("lock: acquire: %w", err)
	}

	// The mkdir is the lock; the owner record is advisory diagnostics.
	// A failed write must not surrender a lock we already won.
	_ = writeOwner(dir, owner)

	return &Handle{dir: dir, owner: owner}, nil
}

// Owner returns the identity recorded at acquire time.
func (h *Handle) Owner() Owner {
	return h.owner
}

// Release removes the lock directory. Releasing an already released
// handle is a no-op, so defer h.Release() composes with early error
// returns that release explicitly.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true
	if err := os.RemoveAll(h.dir); err != nil {
		return fmt.Errorf("lock: release: %w", err)
	}
	return nil
}

// ReadOwner reports who holds the lock under root. It returns
// fs.ErrNotExist when the lock is free.
func ReadOwner(root string) (Owner, error) {
	dir := filepath.Join(root, DirName)
	if _, err := os.Stat(dir); err != nil {
		return Owner{}, err
	}
	return readOwner(dir)
}

func writeOwner(dir string, o Owner) error {
	var b strings.Builder
	fmt.Fprintf(&b, "token=%s\n", o.Token)
	fmt.Fprintf(&b, "pid=%d\n", o.PID)
	fmt.Fprintf(&b, "acquired=%s\n", o.AcquiredAt.UTC().Format(time.RFC3339))
	return os.WriteFile(filepath.Join(dir, ownerFile), []byte(b.String()), 0644)
}

func readOwner(dir string) (Owner, error) {
	data, err := os.ReadFile(filepath.Join(dir, ownerFile))
	if err != nil {
		return Owner{}, err
	}
	var o Owner
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "token":
			o.Token = value
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "acquired":
			o.AcquiredAt, _ = time.Parse(time.RFC3339, value)
		}
	}
	if o.Token == "" {
		return Owner{}, fmt.Errorf("lock: owner record in %s is unreadable", dir)
	}
	return o, nil
}
