package entry

import (
	"errors"
	"fmt"
	"time"

	"cmdq/internal/envsnap"
)

// Kind distinguishes how an entry's payload is resolved at execution time.
type Kind string

const (
	// KindFile references an external executable by path. The file is
	// re-read when the entry runs, so edits between enqueue and
	// processing take effect.
	KindFile Kind = "file"

	// KindInline carries the payload bytes frozen at enqueue time.
	KindInline Kind = "inline"
)

// ErrInvalidInput reports that no runnable action could be derived from
// the submitted path or stream.
var ErrInvalidInput = errors.New("entry: invalid input")

// Entry is one queued action: identity, captured environment, payload,
// and an informational enqueue timestamp.
type Entry struct {
	// Key uniquely identifies the entry within the queue store.
	Key string

	// Kind selects between file reference and inline payload.
	Kind Kind

	// Env is the environment captured at enqueue time, applied verbatim
	// to the child process at execution time.
	Env envsnap.Snapshot

	// Command is the resolved absolute path of the referenced executable.
	// Set only for KindFile.
	Command string

	// Payload holds the frozen action bytes. Set only for KindInline.
	Payload []byte

	// EnqueuedAt records when the entry was created. Informational only;
	// it takes no part in identity or ordering.
	EnqueuedAt time.Time
}

// NewFileEntry builds a path-derived entry. The path must name an
// existing, executable, non-directory file; otherwise ErrInvalidInput.
func NewFileEntry(path string, env envsnap.Snapshot, now time.Time) (*Entry, error) {
	resolved, err := resolveExecutable(path)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Key:        KeyFromPath(resolved),
		Kind:       KindFile,
		Env:        env,
		Command:    resolved,
		EnqueuedAt: now,
	}, nil
}

// NewInlineEntry builds a stdin-derived entry from frozen payload bytes.
// An empty payload is ErrInvalidInput.
func NewInlineEntry(payload []byte, env envsnap.Snapshot, h Hasher, now time.Time) (*Entry, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	return &Entry{
		Key:        KeyFromContent(payload, h),
		Kind:       KindInline,
		Env:        env,
		Payload:    payload,
		EnqueuedAt: now,
	}, nil
}
