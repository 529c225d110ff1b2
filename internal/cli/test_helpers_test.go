package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"cmdq/internal/config"
)

// setTestRoot points the CLI at a throwaway working root and pins the
// hash algorithm, insulating tests from the host environment and any
// real per-user config file.
func setTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("CMDQ_DIR", root)
	t.Setenv("CMDQ_HASH", "sha256")
	t.Setenv(config.ConfigPathVar, filepath.Join(root, "no-config.yaml"))
	return root
}

// writeScript drops an executable shell script into dir and returns its
// absolute path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// execute runs the CLI with the given args and captured output.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// captureCommand builds a bare command with buffered output for driving
// run helpers directly.
func captureCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "cmdq"}
	outBuf := &bytes.Buffer{}
	cmd.SetOut(outBuf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, outBuf
}
