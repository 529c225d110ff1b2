package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cmdq/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// HistoryRow is one processed-entry record in history output.
type HistoryRow struct {
	Key         string `json:"key"`
	ArchivedAs  string `json:"archived_as"`
	CompletedAt string `json:"completed_at"`
	Log         string `json:"log"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed entries",
		Long: `Show the processing history index, newest first.

The index is a best-effort sqlite record appended when entries are
archived. It is diagnostic only: processing never reads it, and a
missing or stale index never affects the queue.

Example:
  cmdq history
  cmdq history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum records to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, _, err := openStore()
	if err != nil {
		return err
	}

	hist, err := store.OpenHistory(st.HistoryPath())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open history index", err)
	}
	defer hist.Close()

	recs, err := hist.Recent(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read history index", err)
	}

	rows := make([]HistoryRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, HistoryRow{
			Key:         rec.Key,
			ArchivedAs:  rec.ArchivedName,
			CompletedAt: rec.CompletedAt.Format(time.RFC3339),
			Log:         rec.LogPath,
		})
	}

	if f.Format == "json" {
		return f.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(f.Writer, "no history")
		return nil
	}
	for _, row := range rows {
		fmt.Fprintf(f.Writer, "%s  %s  %s\n", row.CompletedAt, row.Key, row.ArchivedAs)
	}
	return nil
}
