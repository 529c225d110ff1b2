package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// ShowRow is one live queue entry in show output.
type ShowRow struct {
	Key        string `json:"key"`
	Kind       string `json:"kind"`
	EnqueuedAt string `json:"enqueued_at,omitempty"`
}

// ShowResult holds the full show output.
type ShowResult struct {
	Root    string    `json:"root"`
	Count   int       `json:"count"`
	Entries []ShowRow `json:"entries"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List live queue entries",
		Long: `List the live queue in processing order.

Each row is one queued entry: key, kind (file or inline) and enqueue
time. An entry whose artifact no longer parses is listed as corrupt;
a pass archives such entries without executing anything.

Example:
  cmdq show
  cmdq show --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	st, _, err := openStore()
	if err != nil {
		return err
	}
	f.VerboseLog("working root: %s", st.Root())

	keys, err := st.List()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list queue", err)
	}

	result := ShowResult{
		Root:    st.Root(),
		Count:   len(keys),
		Entries: make([]ShowRow, 0, len(keys)),
	}
	for _, key := range keys {
		row := ShowRow{Key: key}
		e, err := st.Read(key)
		if err != nil {
			row.Kind = "corrupt"
		} else {
			row.Kind = string(e.Kind)
			row.EnqueuedAt = e.EnqueuedAt.Format(time.RFC3339)
		}
		result.Entries = append(result.Entries, row)
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	if result.Count == 0 {
		fmt.Fprintln(f.Writer, "queue is empty")
		return nil
	}
	for _, row := range result.Entries {
		if row.EnqueuedAt == "" {
			fmt.Fprintf(f.Writer, "%s  %s\n", row.Key, row.Kind)
			continue
		}
		fmt.Fprintf(f.Writer, "%s  %s  %s\n", row.Key, row.Kind, row.EnqueuedAt)
	}
	return nil
}
