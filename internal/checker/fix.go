// ============================================================================
// tidy-runner Fix-Application Pass
// ============================================================================
//
// Package: internal/checker
// File: fix.go
// Purpose: The optional post-pass that applies the suggested fixes the
// workers exported during a --fix run.
//
// The pass runs exactly once, after the worker pool has fully drained, and
// is pointed at the directory holding every per-worker fix file. Its failure
// is reported but never changes the run's own exit status: the per-file
// failures were already recorded when they happened.
//
// ============================================================================

package checker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// NewFixDir creates the per-run directory the workers export fixes into.
func NewFixDir() (string, error) {
	dir, err := os.MkdirTemp("", "tidyrun-fixes-")
	if err != nil {
		return "", fmt.Errorf("failed to create fix-output directory: %w", err)
	}
	return dir, nil
}

// CleanupFixDir removes the fix-output directory and everything in it. Safe
// to call with an empty path and from the interrupt path.
func CleanupFixDir(dir string) {
	if dir != "" {
		os.RemoveAll(dir)
	}
}

// ApplyFixes invokes the external applier once against the fix directory.
// Callers only reach this when fix mode was on and at least one failure was
// recorded; an error here goes to stderr and nowhere else.
func (c *Checker) ApplyFixes(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.ApplyBinary, c.FixDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", c.ApplyBinary, err, out)
	}
	return nil
}
