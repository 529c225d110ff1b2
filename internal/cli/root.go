package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cmdq/internal/config"
	"cmdq/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cmdq CLI.
//
// A bare invocation doubles as enqueue: `cmdq <path>` behaves like
// `cmdq add <path>`, and `... | cmdq` enqueues the piped bytes. With no
// argument and no pipe there is nothing to do, so usage goes to stderr.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	addOpts := &AddOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "cmdq [path]",
		Short: "cmdq - deduplicating command queue",
		Long: `cmdq queues executable work and runs it later, once per distinct action.

Enqueue a script by path (or pipe its text in), then drain the whole
queue with a single sequential processing pass. Re-adding an action that
is already queued is rejected; once processed, it may be queued again.

Example:
  cmdq ./nightly-sync.sh
  echo 'echo hello' | cmdq
  cmdq process`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(addOpts, cmd, args)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore resolves the working root from configuration and opens the
// store, creating the on-disk layout on first use.
func openStore() (*store.Store, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitFailure, "failed to load configuration", err)
	}
	st, err := store.Open(cfg.Dir)
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitFailure, "failed to open queue root", err)
	}
	return st, cfg, nil
}
