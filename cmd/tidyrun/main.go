package main

// ============================================================================
// tidyrun entry point. All logic lives in internal/cli; this file only
// builds the command tree, executes it, and contains top-level panic
// recovery.
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/ChuLiYu/tidy-runner/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
