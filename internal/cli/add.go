package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cmdq/internal/entry"
	"cmdq/internal/envsnap"
	"cmdq/internal/store"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions

	// Stdin overrides the piped payload source (for testing).
	// If nil, os.Stdin is used when it is actually piped.
	Stdin io.Reader
}

// AddResult reports one enqueued entry.
type AddResult struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
	Root string `json:"root"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add [path]",
		Short: "Enqueue an executable file or piped payload",
		Long: `Enqueue work for a later processing pass.

With a path argument the entry references the executable file. The file
is re-read when the pass runs it, so edits made after enqueueing take
effect. With piped stdin and no argument the piped bytes are frozen
into the entry exactly as received.

The entry key is derived from the resolved path, or from a digest of
the payload. Adding an action whose key is already queued is rejected
as a duplicate until a pass processes the queued entry.

Example:
  cmdq add ./nightly-sync.sh
  echo 'echo hello' | cmdq add`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd, args)
		},
	}

	return cmd
}

// runAdd dispatches between path and stdin enqueue. The bare root
// invocation routes here as well.
func runAdd(opts *AddOptions, cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return addPath(opts, cmd, args[0])
	}
	if opts.Stdin != nil {
		return addStdin(opts, cmd, opts.Stdin)
	}
	if Piped(os.Stdin) {
		return addStdin(opts, cmd, os.Stdin)
	}
	_ = cmd.Usage()
	return NewExitError(ExitUsage, "nothing to enqueue: pass an executable path or pipe a payload")
}

func addPath(opts *AddOptions, cmd *cobra.Command, path string) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, _, err := openStore()
	if err != nil {
		return err
	}
	f.VerboseLog("working root: %s", st.Root())

	e, err := entry.NewFileEntry(path, envsnap.Capture(), time.Now())
	if err != nil {
		return failf(f, ExitFailure, "invalid_input", "%v", err)
	}
	return insert(f, st, e)
}

func addStdin(opts *AddOptions, cmd *cobra.Command, in io.Reader) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	f.VerboseLog("working root: %s", st.Root())

	payload, err := io.ReadAll(in)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read piped payload", err)
	}
	hasher, err := entry.NewHasher(cfg.Hash)
	if err != nil {
		return failf(f, ExitFailure, "unknown_algorithm", "%v", err)
	}
	e, err := entry.NewInlineEntry(payload, envsnap.Capture(), hasher, time.Now())
	if err != nil {
		return failf(f, ExitFailure, "invalid_input", "%v", err)
	}
	return insert(f, st, e)
}

// insert publishes the entry and reports the outcome. A key collision
// with a live entry is the duplicate condition, not an error in the
// entry itself.
func insert(f *OutputFormatter, st *store.Store, e *entry.Entry) error {
	if err := st.TryInsert(e); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return failf(f, ExitDuplicate, "duplicate", "already queued: %s", e.Key)
		}
		return WrapExitError(ExitFailure, "failed to enqueue", err)
	}

	if f.Format == "json" {
		return f.Success(AddResult{Key: e.Key, Kind: string(e.Kind), Root: st.Root()})
	}
	fmt.Fprintf(f.Writer, "enqueued %s (%s)\n", e.Key, e.Kind)
	return nil
}
