package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cmdq/internal/lock"
	"cmdq/internal/processor"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions

	// Tokens allows overriding the pass token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens processor.TokenGenerator
}

// ProcessResult reports one completed pass.
type ProcessResult struct {
	Token     string `json:"token"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed,omitempty"`
	Corrupt   int    `json:"corrupt,omitempty"`
	Duration  string `json:"duration"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one sequential processing pass",
		Long: `Run one processing pass over the queue.

The pass takes the exclusion lock, runs every queued entry in key
order, appends each action's output to its per-key log, and archives
finished entries. Exactly one pass runs at a time; a second invocation
while the lock is held fails immediately.

An interrupt (Ctrl-C) stops the pass after the current action finishes.
The unfinished remainder stays queued for the next pass.

Example:
  cmdq process
  cmdq process --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, cmd)
		},
	}

	return cmd
}

func runProcess(opts *ProcessOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	st, _, err := openStore()
	if err != nil {
		return err
	}

	proc := processor.New(st, nil, opts.Tokens)

	// Setup signal handling for a clean stop between entries
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after current action", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	res, err := proc.Process(ctx)
	if err != nil {
		f := newFormatter(opts.RootOptions, cmd)
		switch {
		case errors.Is(err, processor.ErrEmptyQueue):
			return failf(f, ExitFailure, "empty_queue", "%v", err)
		case errors.Is(err, lock.ErrHeld):
			return failf(f, ExitLockHeld, "lock_held", "%v", err)
		case errors.Is(err, processor.ErrInterrupted):
			return failf(f, ExitFailure, "interrupted", "%v", err)
		}
		return WrapExitError(ExitFailure, "pass failed", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.Format == "json" {
		return f.Success(ProcessResult{
			Token:     res.Token,
			Processed: res.Processed,
			Failed:    res.Failed,
			Corrupt:   res.Corrupt,
			Duration:  res.Duration.String(),
		})
	}

	fmt.Fprintf(f.Writer, "pass %s: processed %d entry(s) in %s\n", res.Token, res.Processed, res.Duration)
	if res.Failed > 0 {
		fmt.Fprintf(f.Writer, "  %d action(s) exited nonzero\n", res.Failed)
	}
	if res.Corrupt > 0 {
		fmt.Fprintf(f.Writer, "  %d unreadable entry(s) archived without execution\n", res.Corrupt)
	}
	return nil
}
