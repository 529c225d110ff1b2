package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cmdq/internal/entry"
)

// Scenario defines one conformance scenario: a step sequence over a
// fresh working root plus assertions over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are stored
	// under testdata/golden/{name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Env lists extra environment variables visible to executed
	// payloads. CMDQ_MARK and PATH are always provided.
	Env map[string]string `yaml:"env,omitempty"`

	// Steps is the operation sequence, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final queue, archive, logs and mark file.
	// Supported types: queue_count, queue_contains, archive_count,
	// log_contains, run_order.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one queue operation. Exactly one of Enqueue, Process or
// Clear selects the operation.
type Step struct {
	// Enqueue names the entry to submit. Assertions and trace events
	// refer to entries by this name.
	Enqueue string `yaml:"enqueue,omitempty"`

	// Kind selects the submission style for enqueue steps: "file"
	// writes the payload as an executable script and enqueues its
	// path, "inline" (the default) enqueues the frozen payload bytes.
	Kind string `yaml:"kind,omitempty"`

	// Payload is the script source for enqueue steps. File-kind
	// payloads need an interpreter line; inline payloads without one
	// fall back to /bin/sh at execution time.
	Payload string `yaml:"payload,omitempty"`

	// Process runs one full pass.
	Process bool `yaml:"process,omitempty"`

	// Clear removes every live entry.
	Clear bool `yaml:"clear,omitempty"`

	// Expect is the expected step outcome. Enqueue steps accept
	// "inserted" (the default) or "duplicate"; process steps accept
	// "processed" (the default) or "empty". A mismatch fails the
	// scenario.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates one aspect of the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "queue_count": the live queue holds exactly Count entries
	// - "queue_contains": the entry named Entry is live
	// - "archive_count": Entry has exactly Count archived instances
	// - "log_contains": Entry's log contains Text
	// - "run_order": the mark file holds exactly Lines, in order
	Type string `yaml:"type"`

	// Entry names the enqueued entry the assertion is about.
	Entry string `yaml:"entry,omitempty"`

	// Count is the expected number of occurrences (used by
	// queue_count and archive_count).
	Count int `yaml:"count,omitempty"`

	// Text is the expected substring (used by log_contains).
	Text string `yaml:"text,omitempty"`

	// Lines is the expected mark file content (used by run_order).
	Lines []string `yaml:"lines,omitempty"`
}

// Assertion type constants.
const (
	AssertQueueCount    = "queue_count"
	AssertQueueContains = "queue_contains"
	AssertArchiveCount  = "archive_count"
	AssertLogContains   = "log_contains"
	AssertRunOrder      = "run_order"
)

// Step outcome constants. Enqueue steps produce the first pair,
// process steps the second.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"

	OutcomeProcessed = "processed"
	OutcomeEmpty     = "empty"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// DiscoverScenarios lists the scenario files directly under dir, in
// name order. Files without a .yaml extension are ignored.
func DiscoverScenarios(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	var paths []string
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, d.Name()))
	}
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Collect enqueue step names so assertions can be cross-checked.
	names := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if step.Enqueue != "" {
			names[step.Enqueue] = true
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its operation.
func validateStep(index int, s *Step) error {
	ops := 0
	if s.Enqueue != "" {
		ops++
	}
	if s.Process {
		ops++
	}
	if s.Clear {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("steps[%d]: exactly one of enqueue, process, clear is required", index)
	}

	switch {
	case s.Enqueue != "":
		if s.Payload == "" {
			return fmt.Errorf("steps[%d]: payload is required for enqueue", index)
		}
		switch s.Kind {
		case "", string(entry.KindInline), string(entry.KindFile):
		default:
			return fmt.Errorf("steps[%d]: unknown kind %q", index, s.Kind)
		}
		switch s.Expect {
		case "", OutcomeInserted, OutcomeDuplicate:
		default:
			return fmt.Errorf("steps[%d]: expect must be %q or %q for enqueue, got %q",
				index, OutcomeInserted, OutcomeDuplicate, s.Expect)
		}
	case s.Process:
		if s.Kind != "" || s.Payload != "" {
			return fmt.Errorf("steps[%d]: kind and payload apply to enqueue steps only", index)
		}
		switch s.Expect {
		case "", OutcomeProcessed, OutcomeEmpty:
		default:
			return fmt.Errorf("steps[%d]: expect must be %q or %q for process, got %q",
				index, OutcomeProcessed, OutcomeEmpty, s.Expect)
		}
	case s.Clear:
		if s.Kind != "" || s.Payload != "" || s.Expect != "" {
			return fmt.Errorf("steps[%d]: clear steps take no other fields", index)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
// Assertions naming an entry must reference some enqueue step.
func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsEntry := false
	switch a.Type {
	case AssertQueueCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for queue_count", index)
		}
	case AssertQueueContains:
		needsEntry = true
	case AssertArchiveCount:
		needsEntry = true
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for archive_count", index)
		}
	case AssertLogContains:
		needsEntry = true
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_contains", index)
		}
	case AssertRunOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for run_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if needsEntry {
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for %s", index, a.Type)
		}
		if !names[a.Entry] {
			return fmt.Errorf("assertions[%d]: entry %q does not match any enqueue step", index, a.Entry)
		}
	}

	return nil
}
