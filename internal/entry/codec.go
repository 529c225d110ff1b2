package entry

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmdq/internal/envsnap"
)

// On-disk artifact layout, one entry per file:
//
//	# cmdq/v1 file|inline
//	NAME="value"            (env block, zero or more lines)
//	---
//	/abs/path  or  payload  (file kind: one line; inline kind: raw bytes)
//	---
//	# enqueued 2026-01-02T15:04:05Z
//
// The env block ends at the first delimiter; the trailer is recognized
// from the end (last line is the timestamp comment, the line before it
// the closing delimiter). Parsing from both ends lets inline payloads
// contain delimiter-looking lines without any escaping.
const (
	headerPrefix  = "# cmdq/v1 "
	delimiter     = "---"
	trailerPrefix = "# enqueued "
)

// ErrCorrupt reports an artifact that does not parse as an entry.
var ErrCorrupt = errors.New("entry: corrupt artifact")

// Marshal serializes an entry into its self-contained artifact form.
// Inline payloads are newline-terminated if they are not already.
func Marshal(e *Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(headerPrefix)
	b.WriteString(string(e.Kind))
	b.WriteByte('\n')
	b.WriteString(e.Env.Render())
	b.WriteString(delimiter)
	b.WriteByte('\n')

	switch e.Kind {
	case KindFile:
		if e.Command == "" || strings.ContainsRune(e.Command, '\n') {
			return nil, fmt.Errorf("entry: marshal: invalid command reference %q", e.Command)
		}
		b.WriteString(e.Command)
		b.WriteByte('\n')
	case KindInline:
		if len(e.Payload) == 0 {
			return nil, errors.New("entry: marshal: empty inline payload")
		}
		b.Write(e.Payload)
		if e.Payload[len(e.Payload)-1] != '\n' {
			b.WriteByte('\n')
		}
	default:
		return nil, fmt.Errorf("entry: marshal: unknown kind %q", e.Kind)
	}

	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.WriteString(trailerPrefix)
	b.WriteString(e.EnqueuedAt.UTC().Format(time.RFC3339))
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Unmarshal parses an artifact back into an Entry. The entry's Key is
// not stored in the artifact (it is the file's name in the queue store);
// callers set it after parsing.
func Unmarshal(data []byte) (*Entry, error) {
	s := string(data)
	if !strings.HasSuffix(s, "\n") {
		return nil, fmt.Errorf("%w: missing final newline", ErrCorrupt)
	}
	lines := strings.Split(s, "\n")
	lines = lines[:len(lines)-1] // drop empty tail from the final newline
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: truncated (%d lines)", ErrCorrupt, len(lines))
	}

	kindName, ok := strings.CutPrefix(lines[0], headerPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: bad header %q", ErrCorrupt, lines[0])
	}
	kind := Kind(kindName)
	if kind != KindFile && kind != KindInline {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrCorrupt, kindName)
	}

	stamp, ok := strings.CutPrefix(lines[len(lines)-1], trailerPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: bad trailer %q", ErrCorrupt, lines[len(lines)-1])
	}
	enqueuedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad enqueue timestamp %q", ErrCorrupt, stamp)
	}
	if lines[len(lines)-2] != delimiter {
		return nil, fmt.Errorf("%w: missing closing delimiter", ErrCorrupt)
	}

	envEnd := -1
	for i := 1; i < len(lines)-2; i++ {
		if lines[i] == delimiter {
			envEnd = i
			break
		}
	}
	if envEnd < 0 {
		return nil, fmt.Errorf("%w: missing opening delimiter", ErrCorrupt)
	}

	env, err := envsnap.Parse(strings.Join(lines[1:envEnd], "\n"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	payload := lines[envEnd+1 : len(lines)-2]
	e := &Entry{Kind: kind, Env: env, EnqueuedAt: enqueuedAt}
	switch kind {
	case KindFile:
		if len(payload) != 1 || payload[0] == "" {
			return nil, fmt.Errorf("%w: file entry needs exactly one command line", ErrCorrupt)
		}
		e.Command = payload[0]
	case KindInline:
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: inline entry has no payload", ErrCorrupt)
		}
		e.Payload = []byte(strings.Join(payload, "\n") + "\n")
	}
	return e, nil
}
