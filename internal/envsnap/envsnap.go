// Package envsnap captures a process environment into an ordered,
// explicitly escaped form that survives serialization into queue entries
// and is restored verbatim for action execution.
//
// The serialized form is one assignment per line, NAME="value", with the
// value Go-quoted (strconv.Quote). Quoting is unconditional: every value
// round-trips embedded spaces, single and double quotes, and newlines
// without shell-style escaping branches.
package envsnap

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Var is a single captured environment variable.
type Var struct {
	Name  string
	Value string
}

// Snapshot is an ordered list of environment variables. Order is the
// capture order and is preserved through Render/Parse round trips.
type Snapshot []Var

// validName reports whether name is acceptable as a variable name.
// The grammar is the portable one: a letter or underscore followed by
// letters, digits or underscores. Anything else (exported shell
// functions, smuggled "=" names) is dropped at capture time.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Capture snapshots the calling process's environment in os.Environ
// order. Entries with unportable names are skipped.
func Capture() Snapshot {
	environ := os.Environ()
	snap := make(Snapshot, 0, len(environ))
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			continue
		}
		name, value := kv[:eq], kv[eq+1:]
		if !validName(name) {
			continue
		}
		snap = append(snap, Var{Name: name, Value: value})
	}
	return snap
}

// Render serializes the snapshot as one NAME="value" assignment per
// line, newline-terminated. Rendering an empty snapshot yields an empty
// string.
func (s Snapshot) Render() string {
	var b strings.Builder
	for _, v := range s {
		b.WriteString(v.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(v.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

// Apply returns the snapshot in the NAME=value form accepted by
// exec.Cmd.Env. The child sees exactly the captured variables and
// nothing from the host environment.
func (s Snapshot) Apply() []string {
	env := make([]string, len(s))
	for i, v := range s {
		env[i] = v.Name + "=" + v.Value
	}
	return env
}

// Lookup returns the value captured for name, if any.
func (s Snapshot) Lookup(name string) (string, bool) {
	for _, v := range s {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Sorted returns a copy of the snapshot ordered by variable name.
// Rendering a sorted snapshot gives a deterministic block regardless of
// the platform's environ order.
func (s Snapshot) Sorted() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseLine parses a single rendered assignment line back into a Var.
func ParseLine(line string) (Var, error) {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return Var{}, fmt.Errorf("envsnap: malformed assignment %q", line)
	}
	name := line[:eq]
	if !validName(name) {
		return Var{}, fmt.Errorf("envsnap: invalid variable name %q", name)
	}
	value, err := strconv.Unquote(line[eq+1:])
	if err != nil {
		return Var{}, fmt.Errorf("envsnap: unquote value of %s: %w", name, err)
	}
	return Var{Name: name, Value: value}, nil
}

// Parse reconstructs a snapshot from a rendered assignment block.
// Blank lines are ignored; any other malformed line is an error.
func Parse(block string) (Snapshot, error) {
	var snap Snapshot
	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			continue
		}
		v, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		snap = append(snap, v)
	}
	return snap, nil
}
