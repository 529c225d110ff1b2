// Package processor drains the queue. One pass takes the exclusion
// lock, snapshots the live entries, executes them one at a time in key
// order, brackets each execution with log markers, archives each entry
// on completion, and releases the lock. Entries enqueued while a pass
// runs are not in its snapshot and wait for the next pass.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cmdq/internal/lock"
	"cmdq/internal/store"
)

// Sentinel results of a pass.
var (
	// ErrEmptyQueue reports a pass that found nothing to do.
	ErrEmptyQueue = errors.New("processor: queue is empty")
	// ErrInterrupted reports a pass stopped by context cancellation.
	// The in-flight entry stays queued; its log has a start marker
	// without a matching end marker.
	ErrInterrupted = errors.New("processor: pass interrupted")
)

// Log marker layout. The end marker's stamp is the completion time and
// matches the stamp in the archived entry's name.
const (
	startMarkerFormat = "=== cmdq start %s ===\n"
	endMarkerFormat   = "=== cmdq end %s ===\n"
)

// Processor executes passes over one store.
type Processor struct {
	store  *store.Store
	clock  Clock
	tokens TokenGenerator
}

// New creates a processor. A nil clock defaults to the system clock; a
// nil generator defaults to UUIDv7 pass tokens.
func New(s *store.Store, clock Clock, tokens TokenGenerator) *Processor {
	if clock == nil {
		clock = SystemClock{}
	}
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Processor{store: s, clock: clock, tokens: tokens}
}

// Result summarizes a completed pass.
type Result struct {
	Token     string
	Processed int // entries archived by this pass
	Failed    int // subset whose action did not exit 0
	Corrupt   int // subset archived without execution (unreadable artifact)
	Duration  time.Duration
}

// Process runs one pass. It returns lock.ErrHeld when another pass is
// running, ErrEmptyQueue when there was nothing to process, and
// ErrInterrupted when ctx was cancelled mid-pass. The lock is released
// on every path.
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	token := p.tokens.Generate()
	start := p.clock.Now()

	h, err := lock.Acquire(p.store.Root(), lock.Owner{
		Token:      token,
		PID:        os.Getpid(),
		AcquiredAt: start,
	})
	if err != nil {
		return nil, err
	}
	defer h.Release()

	keys, err := p.store.List()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrEmptyQueue
	}

	slog.Info("pass started", "token", token, "entries", len(keys))

	hist, err := store.OpenHistory(p.store.HistoryPath())
	if err != nil {
		// The index is diagnostic only; a broken one never blocks work.
		slog.Warn("history index unavailable", "error", err)
		hist = nil
	} else {
		defer hist.Close()
	}

	res := &Result{Token: token}
	for _, key := range keys {
		if ctx.Err() != nil {
			slog.Warn("pass interrupted", "token", token, "processed", res.Processed)
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
		if err := p.processEntry(ctx, hist, key, res); err != nil {
			if errors.Is(err, ErrInterrupted) {
				slog.Warn("pass interrupted", "token", token, "key", key, "processed", res.Processed)
			}
			return nil, err
		}
	}

	res.Duration = p.clock.Now().Sub(start)
	slog.Info("pass complete",
		"token", token,
		"processed", res.Processed,
		"failed", res.Failed,
		"corrupt", res.Corrupt,
		"duration", res.Duration,
	)
	return res, nil
}

// processEntry runs the full lifecycle of one entry: start marker,
// execution, end marker, archive, history record. An action that exits
// nonzero still completes the lifecycle; only infrastructure failures
// (unwritable log, failed archive) abort the pass.
func (p *Processor) processEntry(ctx context.Context, hist *store.History, key string, res *Result) error {
	logf, err := os.OpenFile(p.store.LogPath(key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("processor: open log for %s: %w", key, err)
	}
	defer logf.Close()

	started := p.clock.Now()
	if _, err := fmt.Fprintf(logf, startMarkerFormat, started.UTC().Format(store.StampLayout)); err != nil {
		return fmt.Errorf("processor: log %s: %w", key, err)
	}

	e, readErr := p.store.Read(key)
	switch {
	case readErr != nil:
		// Archive the wreck so the queue keeps moving; the log block
		// records why the entry vanished without running.
		fmt.Fprintf(logf, "cmdq: unreadable entry: %v\n", readErr)
		res.Corrupt++
		slog.Warn("corrupt entry archived unexecuted", "key", key, "error", readErr)
	default:
		runErr := run(e, logf)
		if ctx.Err() != nil {
			// Interrupted mid-execution: no end marker, no archive.
			// The entry stays queued for the next pass.
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
		if runErr != nil {
			if startFailure(runErr) {
				fmt.Fprintf(logf, "cmdq: action did not start: %v\n", runErr)
			}
			res.Failed++
			slog.Warn("action failed", "key", key, "error", runErr)
		} else {
			slog.Debug("action succeeded", "key", key)
		}
	}

	completed := p.clock.Now()
	if _, err := fmt.Fprintf(logf, endMarkerFormat, completed.UTC().Format(store.StampLayout)); err != nil {
		return fmt.Errorf("processor: log %s: %w", key, err)
	}

	name, err := p.store.Archive(key, completed)
	if err != nil {
		return err
	}
	res.Processed++
	slog.Info("entry archived", "key", key, "archived", name)

	if hist != nil {
		rec := store.HistoryRecord{
			Key:          key,
			ArchivedName: name,
			CompletedAt:  completed,
			LogPath:      p.store.LogPath(key),
		}
		if err := hist.Record(ctx, rec); err != nil {
			slog.Warn("history record failed", "key", key, "error", err)
		}
	}
	return nil
}
