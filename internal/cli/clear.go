package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ClearResult reports a queue wipe.
type ClearResult struct {
	Removed int    `json:"removed"`
	Root    string `json:"root"`
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every live queue entry",
		Long: `Remove every live queue entry without processing anything.

Stale temp artifacts left behind by crashed enqueues are swept as well.
Archived entries, logs and history are untouched. There is no
confirmation prompt.

Example:
  cmdq clear`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, cmd)
		},
	}

	return cmd
}

func runClear(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	st, _, err := openStore()
	if err != nil {
		return err
	}

	n, err := st.Clear()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to clear queue", err)
	}

	if f.Format == "json" {
		return f.Success(ClearResult{Removed: n, Root: st.Root()})
	}
	fmt.Fprintf(f.Writer, "removed %d entry(s)\n", n)
	return nil
}
