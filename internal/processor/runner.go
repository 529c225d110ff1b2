package processor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"cmdq/internal/entry"
	"cmdq/internal/envsnap"
)

// run executes an entry's action with the captured snapshot as the
// child's entire environment, streaming combined stdout and stderr to
// w. File-kind entries re-read the referenced path at execution time;
// inline entries execute their frozen payload bytes.
//
// The child is deliberately not bound to a context: an interrupted
// pass leaves the running action alone and stops after it finishes.
func run(e *entry.Entry, w io.Writer) error {
	switch e.Kind {
	case entry.KindFile:
		return runCmd(exec.Command(e.Command), e.Env, w)
	case entry.KindInline:
		return runInline(e, w)
	default:
		return fmt.Errorf("processor: unknown entry kind %q", e.Kind)
	}
}

// runInline materializes the frozen payload into a private temp file
// and executes it directly. Payloads without an interpreter line make
// the kernel return ENOEXEC; those fall back to /bin/sh.
func runInline(e *entry.Entry, w io.Writer) error {
	dir, err := os.MkdirTemp("", "cmdq-action-")
	if err != nil {
		return fmt.Errorf("processor: materialize action: %w", err)
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, "action")
	if err := os.WriteFile(script, e.Payload, 0700); err != nil {
		return fmt.Errorf("processor: materialize action: %w", err)
	}

	err = runCmd(exec.Command(script), e.Env, w)
	if errors.Is(err, syscall.ENOEXEC) {
		return runCmd(exec.Command("/bin/sh", script), e.Env, w)
	}
	return err
}

// runCmd starts the command with an allowlist environment: the child
// sees exactly the snapshot's variables, nothing from the host.
func runCmd(cmd *exec.Cmd, env envsnap.Snapshot, w io.Writer) error {
	cmd.Env = env.Apply()
	cmd.Stdout = w
	cmd.Stderr = w
	return cmd.Run()
}

// startFailure reports whether err means the action never ran, as
// opposed to running and exiting nonzero.
func startFailure(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *exec.ExitError
	return !errors.As(err, &exitErr)
}
