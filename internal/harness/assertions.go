package harness

import (
	"fmt"
	"os"
	"strings"

	"cmdq/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the step trace to help place the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full step trace for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSteps:\n")
	for _, event := range e.Trace {
		switch event.Op {
		case "enqueue":
			fmt.Fprintf(&buf, "  [%d] enqueue %s (%s) -> %s\n", event.Seq, event.Entry, event.Kind, event.Outcome)
		case "process":
			fmt.Fprintf(&buf, "  [%d] process -> %s (processed %d)\n", event.Seq, event.Outcome, event.Processed)
		case "clear":
			fmt.Fprintf(&buf, "  [%d] clear -> removed %d\n", event.Seq, event.Removed)
		}
	}

	return buf.String()
}

// AssertionContext provides state access for evaluating assertions.
type AssertionContext struct {
	// Store is the scenario's working root.
	Store *store.Store

	// KeyOf maps enqueue step names to their keys.
	KeyOf map[string]string

	// MarkPath is the shared file payloads append execution marks to.
	MarkPath string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertQueueCount:
			err = assertQueueCount(result, assertion, actx)
		case AssertQueueContains:
			err = assertQueueContains(result, assertion, actx)
		case AssertArchiveCount:
			err = assertArchiveCount(result, assertion, actx)
		case AssertLogContains:
			err = assertLogContains(result, assertion, actx)
		case AssertRunOrder:
			err = assertRunOrder(result, assertion, actx)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertQueueCount checks the number of live entries.
func assertQueueCount(result *Result, assertion Assertion, actx *AssertionContext) error {
	keys, err := actx.Store.List()
	if err != nil {
		return err
	}
	if len(keys) != assertion.Count {
		return &AssertionError{
			Type:     AssertQueueCount,
			Expected: fmt.Sprintf("%d live entries", assertion.Count),
			Actual:   fmt.Sprintf("%d live entries", len(keys)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertQueueContains checks that the named entry is live.
func assertQueueContains(result *Result, assertion Assertion, actx *AssertionContext) error {
	key, err := entryKey(assertion, actx)
	if err != nil {
		return err
	}
	keys, err := actx.Store.List()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertQueueContains,
		Expected: fmt.Sprintf("entry %q live in the queue", assertion.Entry),
		Actual:   "not found",
		Trace:    result.Trace,
	}
}

// assertArchiveCount counts archived instances of the named entry.
// Archived names are "<key>.<stamp>" with a fixed-width stamp, so the
// key comparison is exact rather than a prefix match.
func assertArchiveCount(result *Result, assertion Assertion, actx *AssertionContext) error {
	key, err := entryKey(assertion, actx)
	if err != nil {
		return err
	}
	archived, err := actx.Store.ListArchived()
	if err != nil {
		return err
	}
	count := 0
	for _, name := range archived {
		cut := len(name) - len(store.StampLayout) - 1
		if cut > 0 && name[cut] == '.' && name[:cut] == key {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertArchiveCount,
			Expected: fmt.Sprintf("%d archived instances of %q", assertion.Count, assertion.Entry),
			Actual:   fmt.Sprintf("%d archived instances", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertLogContains checks the named entry's log for a substring.
func assertLogContains(result *Result, assertion Assertion, actx *AssertionContext) error {
	key, err := entryKey(assertion, actx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(actx.Store.LogPath(key))
	if err != nil {
		return &AssertionError{
			Type:     AssertLogContains,
			Expected: fmt.Sprintf("log for %q containing %q", assertion.Entry, assertion.Text),
			Actual:   fmt.Sprintf("log unreadable: %v", err),
			Trace:    result.Trace,
		}
	}
	if !strings.Contains(string(data), assertion.Text) {
		return &AssertionError{
			Type:     AssertLogContains,
			Expected: fmt.Sprintf("log for %q containing %q", assertion.Entry, assertion.Text),
			Actual:   "substring not found",
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRunOrder compares the mark file lines against the expected
// execution order.
func assertRunOrder(result *Result, assertion Assertion, actx *AssertionContext) error {
	lines, err := readMarkLines(actx.MarkPath)
	if err != nil {
		return err
	}
	if !equalLines(lines, assertion.Lines) {
		return &AssertionError{
			Type:     AssertRunOrder,
			Expected: fmt.Sprintf("mark lines %v", assertion.Lines),
			Actual:   fmt.Sprintf("mark lines %v", lines),
			Trace:    result.Trace,
		}
	}
	return nil
}

// readMarkLines loads the mark file as a line list. An absent file
// means no payload ever appended, which reads as no lines.
func readMarkLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func equalLines(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}

// entryKey resolves an assertion's entry name to its key.
func entryKey(assertion Assertion, actx *AssertionContext) (string, error) {
	key, ok := actx.KeyOf[assertion.Entry]
	if !ok {
		return "", fmt.Errorf("%s: entry %q was never enqueued", assertion.Type, assertion.Entry)
	}
	return key, nil
}
