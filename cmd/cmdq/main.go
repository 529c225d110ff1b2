package main

import (
	"fmt"
	"os"

	"cmdq/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands silence cobra's own reporting; the single diagnostic
		// line for every failure is printed here.
		fmt.Fprintf(os.Stderr, "cmdq: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
