package harness

// TraceEvent records one executed step for golden comparison. Events
// reference entries by scenario name, never by key, because
// file-derived keys embed the per-run scratch directory.
type TraceEvent struct {
	Op        string `json:"op"`                  // "enqueue", "process" or "clear"
	Entry     string `json:"entry,omitempty"`     // entry name for enqueue steps
	Kind      string `json:"kind,omitempty"`      // "file" or "inline" for enqueue steps
	Outcome   string `json:"outcome,omitempty"`   // step outcome constant
	Token     string `json:"token,omitempty"`     // pass token for completed passes
	Processed int    `json:"processed,omitempty"` // entries archived by the pass
	Failed    int    `json:"failed,omitempty"`    // subset whose action exited nonzero
	Corrupt   int    `json:"corrupt,omitempty"`   // subset archived without execution
	Removed   int    `json:"removed,omitempty"`   // entries removed by clear
	Seq       int    `json:"seq"`                 // 1-based step position
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step outcome matched its
	// expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace records all executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step mismatch and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Queue holds the final live entries as resolved names, in key
	// order.
	Queue []string `json:"queue"`

	// Archive holds the final archived names with keys resolved to
	// entry names, in listing order.
	Archive []string `json:"archive"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Queue:   []string{},
		Archive: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEnqueueTrace records an enqueue step.
func (r *Result) AddEnqueueTrace(name, kind, outcome string, seq int) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:      "enqueue",
		Entry:   name,
		Kind:    kind,
		Outcome: outcome,
		Seq:     seq,
	})
}

// AddProcessTrace records a process step. Empty passes carry no token
// because the pass result never surfaces one.
func (r *Result) AddProcessTrace(outcome, token string, processed, failed, corrupt, seq int) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:        "process",
		Outcome:   outcome,
		Token:     token,
		Processed: processed,
		Failed:    failed,
		Corrupt:   corrupt,
		Seq:       seq,
	})
}

// AddClearTrace records a clear step.
func (r *Result) AddClearTrace(removed, seq int) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:      "clear",
		Removed: removed,
		Seq:     seq,
	})
}
