package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cmdq/internal/entry"
	"cmdq/internal/envsnap"
	"cmdq/internal/processor"
	"cmdq/internal/store"
	"cmdq/internal/testutil"
)

// scenarioEpoch is the fixed clock base for every run. One second per
// reading makes enqueue stamps, log markers and archive names
// predictable enough to appear verbatim in assertions and goldens.
var scenarioEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// markEnvVar names the shared file payloads append to so that
// execution order becomes observable.
const markEnvVar = "CMDQ_MARK"

// Harness executes one scenario against a throwaway working root.
type Harness struct {
	store    *store.Store
	proc     *processor.Processor
	clock    *testutil.FixedClock
	hasher   entry.Hasher
	env      envsnap.Snapshot
	scratch  string
	markPath string

	// keyOf maps entry names to their keys; nameOf maps back to the
	// first name that produced each key.
	keyOf  map[string]string
	nameOf map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh working root with a fixed clock
// and pre-minted pass tokens, so repeated runs produce identical
// traces. The root is removed when Run returns; the assertions are the
// only window into the final state.
func Run(scenario *Scenario) (*Result, error) {
	workdir, err := os.MkdirTemp("", "cmdq-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario workdir: %w", err)
	}
	defer os.RemoveAll(workdir)

	scratch := filepath.Join(workdir, "scratch")
	if err := os.Mkdir(scratch, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	st, err := store.Open(filepath.Join(workdir, "root"))
	if err != nil {
		return nil, fmt.Errorf("failed to open working root: %w", err)
	}

	hasher, err := entry.NewHasher("sha256")
	if err != nil {
		return nil, err
	}

	clock := testutil.NewFixedClock(scenarioEpoch, time.Second)
	h := &Harness{
		store:    st,
		proc:     processor.New(st, clock, passTokens(scenario)),
		clock:    clock,
		hasher:   hasher,
		scratch:  scratch,
		markPath: filepath.Join(scratch, "mark"),
		keyOf:    make(map[string]string),
		nameOf:   make(map[string]string),
	}
	h.env = buildEnv(scenario.Env, h.markPath)

	// The processor narrates passes through the default logger; keep
	// scenario runs quiet.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer slog.SetDefault(prev)

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	if err := h.captureFinalState(result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store:    st,
		KeyOf:    h.keyOf,
		MarkPath: h.markPath,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// passTokens pre-mints one deterministic token per process step.
func passTokens(scenario *Scenario) *processor.FixedGenerator {
	var tokens []string
	for _, step := range scenario.Steps {
		if step.Process {
			tokens = append(tokens, fmt.Sprintf("pass-%d", len(tokens)+1))
		}
	}
	return processor.NewFixedGenerator(tokens...)
}

// buildEnv assembles the allowlist environment payloads run under: the
// mark file, a minimal PATH, and the scenario's own variables in name
// order.
func buildEnv(extra map[string]string, markPath string) envsnap.Snapshot {
	snap := envsnap.Snapshot{
		{Name: markEnvVar, Value: markPath},
		{Name: "PATH", Value: "/usr/bin:/bin"},
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		snap = append(snap, envsnap.Var{Name: name, Value: extra[name]})
	}
	return snap
}

// runStep executes one step, records its trace event, and checks the
// outcome against the step's expectation. Outcome mismatches mark the
// result failed but do not stop the scenario; infrastructure failures
// abort.
func (h *Harness) runStep(ctx context.Context, index int, step Step, result *Result) error {
	seq := index + 1
	switch {
	case step.Enqueue != "":
		return h.runEnqueue(index, step, result, seq)
	case step.Process:
		return h.runProcess(ctx, index, step, result, seq)
	case step.Clear:
		removed, err := h.store.Clear()
		if err != nil {
			return fmt.Errorf("steps[%d]: clear: %w", index, err)
		}
		result.AddClearTrace(removed, seq)
		return nil
	default:
		return fmt.Errorf("steps[%d]: no operation selected", index)
	}
}

// runEnqueue submits one entry. File-kind steps materialize the
// payload as an executable script in the scratch directory first, so
// the entry goes through the same path resolution a real submission
// would.
func (h *Harness) runEnqueue(index int, step Step, result *Result, seq int) error {
	kind := step.Kind
	if kind == "" {
		kind = string(entry.KindInline)
	}

	var e *entry.Entry
	var err error
	switch kind {
	case string(entry.KindFile):
		path := filepath.Join(h.scratch, step.Enqueue)
		if werr := os.WriteFile(path, []byte(step.Payload), 0755); werr != nil {
			return fmt.Errorf("steps[%d]: write script: %w", index, werr)
		}
		e, err = entry.NewFileEntry(path, h.env, h.clock.Now())
	default:
		e, err = entry.NewInlineEntry([]byte(step.Payload), h.env, h.hasher, h.clock.Now())
	}
	if err != nil {
		return fmt.Errorf("steps[%d]: enqueue %s: %w", index, step.Enqueue, err)
	}

	outcome := OutcomeInserted
	if ierr := h.store.TryInsert(e); ierr != nil {
		if !errors.Is(ierr, store.ErrDuplicate) {
			return fmt.Errorf("steps[%d]: enqueue %s: %w", index, step.Enqueue, ierr)
		}
		outcome = OutcomeDuplicate
	}

	h.keyOf[step.Enqueue] = e.Key
	if _, ok := h.nameOf[e.Key]; !ok {
		h.nameOf[e.Key] = step.Enqueue
	}

	result.AddEnqueueTrace(step.Enqueue, kind, outcome, seq)
	checkOutcome(index, step, outcome, OutcomeInserted, result)
	return nil
}

// runProcess runs one pass. An empty queue is a recognized outcome;
// anything else the processor refuses on is an infrastructure failure.
func (h *Harness) runProcess(ctx context.Context, index int, step Step, result *Result, seq int) error {
	res, err := h.proc.Process(ctx)
	switch {
	case err == nil:
		result.AddProcessTrace(OutcomeProcessed, res.Token, res.Processed, res.Failed, res.Corrupt, seq)
		checkOutcome(index, step, OutcomeProcessed, OutcomeProcessed, result)
	case errors.Is(err, processor.ErrEmptyQueue):
		result.AddProcessTrace(OutcomeEmpty, "", 0, 0, 0, seq)
		checkOutcome(index, step, OutcomeEmpty, OutcomeProcessed, result)
	default:
		return fmt.Errorf("steps[%d]: process: %w", index, err)
	}
	return nil
}

// checkOutcome compares a step's actual outcome against its
// expectation, which defaults per operation.
func checkOutcome(index int, step Step, actual, dflt string, result *Result) {
	expected := step.Expect
	if expected == "" {
		expected = dflt
	}
	if actual != expected {
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected outcome %q, got %q",
			index, stepName(step), expected, actual))
	}
}

// stepName renders a step for failure messages.
func stepName(step Step) string {
	switch {
	case step.Enqueue != "":
		return "enqueue " + step.Enqueue
	case step.Process:
		return "process"
	default:
		return "clear"
	}
}

// captureFinalState resolves the final queue and archive listings to
// entry names for the trace snapshot.
func (h *Harness) captureFinalState(result *Result) error {
	keys, err := h.store.List()
	if err != nil {
		return err
	}
	for _, key := range keys {
		result.Queue = append(result.Queue, h.resolveKey(key))
	}

	archived, err := h.store.ListArchived()
	if err != nil {
		return err
	}
	for _, name := range archived {
		result.Archive = append(result.Archive, h.resolveArchived(name))
	}
	return nil
}

// resolveKey maps a key back to the entry name that produced it.
// Unknown keys pass through unchanged.
func (h *Harness) resolveKey(key string) string {
	if name, ok := h.nameOf[key]; ok {
		return name
	}
	return key
}

// resolveArchived rewrites "<key>.<stamp>" to "<name>.<stamp>". The
// stamp layout is fixed-width, so the key is everything before it.
func (h *Harness) resolveArchived(archived string) string {
	cut := len(archived) - len(store.StampLayout) - 1
	if cut <= 0 || archived[cut] != '.' {
		return archived
	}
	return h.resolveKey(archived[:cut]) + archived[cut:]
}
