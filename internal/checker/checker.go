// ============================================================================
// tidy-runner External Checker Adapter
// ============================================================================
//
// Package: internal/checker
// File: checker.go
// Purpose: Everything that touches the external static-analysis binary:
// resolving it, probing its version, assembling per-file invocations, and
// running them under a hard timeout with captured output.
//
// Execution model:
//   Each invocation is one subprocess. When stdout is an interactive
//   terminal the subprocess is attached to a pseudo-terminal so the checker
//   emits colorized diagnostics exactly as it would when run by hand;
//   otherwise plain pipes are used. Combined output is captured through a
//   size-capped writer so one noisy file cannot balloon memory.
//
// Timeout control:
//   context.WithTimeout bounds every invocation. On expiry the subprocess is
//   killed and the result carries TimedOut=true with ExitCode=-1; the caller
//   records it as a failure.
//
// ============================================================================

package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"

	"github.com/ChuLiYu/tidy-runner/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrCheckerNotFound means the binary could not be resolved on PATH.
	ErrCheckerNotFound = errors.New("checker binary not found")
	// ErrCheckerBroken means the binary resolved but failed its version probe.
	ErrCheckerBroken = errors.New("checker binary failed version probe")
)

// ============================================================================
// Data structures
// ============================================================================

// Checker wraps one external static-analysis binary. The struct is immutable
// after construction and safe for concurrent use: every Run spawns its own
// subprocess.
type Checker struct {
	Binary       string        // checker executable name or path
	ApplyBinary  string        // suggested-fix applier executable
	HeaderFilter string        // regex passed as --header-filter
	Quiet        bool          // pass --quiet through
	Timeout      time.Duration // hard per-invocation timeout
	OutputLimit  int           // captured output cap in bytes
	BaseArgs     []string      // invocation-builder output, shared by all files
	FixDir       string        // per-run directory for exported fixes ("" = fix mode off)
	UsePTY       bool          // attach subprocesses to a pseudo-terminal
}

// InteractiveStdout reports whether stdout is a terminal, which decides the
// pty-vs-pipes execution mode for the whole run.
func InteractiveStdout() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ============================================================================
// Version probe
// ============================================================================

// Probe resolves the checker on PATH and asks it for its version. Any
// failure here is a fatal setup error; the returned message tells the
// operator how to fix their environment.
func (c *Checker) Probe(ctx context.Context) (string, error) {
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not on PATH; install it or point checker.binary at it", ErrCheckerNotFound, c.Binary)
	}

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %q --version: %v", ErrCheckerBroken, path, err)
	}

	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return version, nil
}

// ============================================================================
// Per-file invocation
// ============================================================================

// Args assembles the full argument list for one file. fixPath is the
// worker-private --export-fixes target, empty outside fix mode.
func (c *Checker) Args(file, fixPath string) []string {
	args := make([]string, 0, len(c.BaseArgs)+6)
	if c.Quiet {
		args = append(args, "--quiet")
	}
	if c.HeaderFilter != "" {
		args = append(args, "--header-filter="+c.HeaderFilter)
	}
	if fixPath != "" {
		args = append(args, "--export-fixes="+fixPath)
	}
	args = append(args, file, "--")
	args = append(args, c.BaseArgs...)
	return args
}

// FixPath returns the fix-output file reserved for one worker. Each worker
// writes to its own file so concurrent exports cannot collide.
func (c *Checker) FixPath(workerID int) string {
	if c.FixDir == "" {
		return ""
	}
	return filepath.Join(c.FixDir, fmt.Sprintf("fixes-%d.yaml", workerID))
}

// Run executes the checker once against file and reports the outcome. It
// never returns an error: every failure mode is folded into the result so
// the caller's bookkeeping stays uniform.
func (c *Checker) Run(ctx context.Context, file, fixPath string) types.CheckResult {
	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Binary, c.Args(file, fixPath)...)

	var buf bytes.Buffer
	capped := &limitedWriter{w: &buf, limit: c.OutputLimit}

	start := time.Now()
	var runErr error
	if c.UsePTY {
		runErr = runAttached(cmd, capped)
	} else {
		cmd.Stdout = capped
		cmd.Stderr = capped
		runErr = cmd.Run()
	}

	result := types.CheckResult{
		Path:     file,
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure, not a diagnostic failure. Surface it in the
			// captured output so it prints with the path.
			result.ExitCode = -1
			result.Output += runErr.Error() + "\n"
		}
	}

	return result
}

// runAttached runs cmd on a pseudo-terminal and drains its output into w.
func runAttached(cmd *exec.Cmd, w io.Writer) error {
	tty, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer tty.Close()

	// The copy ends with EIO when the child closes its side; that is the
	// normal termination signal for a pty, not an error worth reporting.
	_, _ = io.Copy(w, tty)

	return cmd.Wait()
}

// ============================================================================
// Limited writer
// ============================================================================

// limitedWriter caps how much subprocess output is retained. Writes past the
// limit are discarded but reported as successful so the subprocess never
// blocks on a full pipe.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.written >= lw.limit {
		lw.truncated = true
		return len(p), nil
	}

	chunk := p
	if remaining := lw.limit - lw.written; len(chunk) > remaining {
		chunk = chunk[:remaining]
		lw.truncated = true
	}

	n, err := lw.w.Write(chunk)
	lw.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
