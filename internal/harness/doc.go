// Package harness executes scenario-driven conformance tests for the
// queue lifecycle.
//
// A scenario is a YAML file describing a sequence of queue operations
// plus assertions over the resulting state. Unlike a unit test, a
// scenario drives the real store and processor against a throwaway
// working root; nothing below the YAML surface is mocked.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario demonstrates"
//	env:
//	  GREETING: hello
//	steps:
//	  - enqueue: a-job
//	    kind: file
//	    payload: |
//	      #!/bin/sh
//	      echo "a-job ran" >> "$CMDQ_MARK"
//	  - enqueue: stdin-job
//	    payload: |
//	      echo "inline ran"
//	  - process: true
//	  - clear: true
//	assertions:
//	  - type: queue_count
//	    count: 0
//	  - type: archive_count
//	    entry: a-job
//	    count: 1
//
// Enqueue steps name their entry; assertions and trace events refer to
// entries by that name, never by key, so golden files stay stable even
// though file-derived keys embed the per-run scratch directory.
//
// # Steps
//
// The following step operations are supported:
//
//   - enqueue with kind "file": the payload is written to the
//     scenario's scratch directory as an executable script and
//     enqueued by path, the way a path submission enters the queue.
//   - enqueue with kind "inline" (the default): the payload bytes are
//     enqueued frozen, the way a piped submission freezes them.
//   - process: one full pass (take the lock, snapshot the queue,
//     execute in key order, archive).
//   - clear: remove every live entry without executing anything.
//
// Payloads run with an allowlist environment: CMDQ_MARK (a shared file
// for recording execution order), a minimal PATH, and the scenario's
// env map. A payload that appends its name to "$CMDQ_MARK" makes
// execution order observable to the run_order assertion.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - queue_count: the live queue holds exactly N entries
//   - queue_contains: the named entry is live
//   - archive_count: the named entry has exactly N archived instances
//   - log_contains: the named entry's log contains a substring
//   - run_order: the mark file holds exactly these lines, in order
//
// # Deterministic Execution
//
// Every run uses a fixed clock stepping one second per reading and
// pre-minted pass tokens ("pass-1", "pass-2", ...), so enqueue stamps,
// log markers and archive names are identical across runs. Scenario
// assertions can therefore name exact marker stamps, and traces can be
// compared against golden files.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/ordering.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
