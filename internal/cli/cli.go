// ============================================================================
// tidy-runner CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra framework
//
// Command Structure:
//   tidyrun                         # Root command
//   ├── check [patterns...]         # Select files and run the checker
//   │   ├── --environment, -e      # Build-metadata profile
//   │   ├── --jobs, -j             # Worker count
//   │   ├── --changed, -c          # Restrict to the changed-files delta
//   │   ├── --grep, -g             # Content filter
//   │   ├── --split-num/--split-at # Shard selection for parallel CI jobs
//   │   ├── --all-headers          # Inject the synthetic header probe
//   │   ├── --fix                  # Export and apply suggested fixes
//   │   ├── --update-baseline      # Persist this run's failures
//   │   └── --quiet, -q            # Pass --quiet to the checker
//   ├── apply-fixes                 # Apply previously exported fixes
//   │   └── --dir, -d              # Directory holding the fix files
//   ├── status                      # Summarize the last run's journal
//   ├── --version                   # Display version information
//   └── --help                      # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml)
//   Configuration items include:
//   - checker: binary names and the header filter
//   - runner: jobs, timeout, output cap, report/baseline paths
//   - environments: per-profile compiler flags, defines, include dirs
//
// check Command:
//   Runs the full pipeline:
//   1. Load config file and resolve the environment profile
//   2. Probe the checker binary (fatal if missing or broken)
//   3. Select candidate files (patterns, delta, grep, shard, probe)
//   4. Start Metrics HTTP server (if enabled)
//   5. Drive the worker pool to completion
//   6. Apply exported fixes / update the baseline as requested
//   7. Exit with the distinct-failure count
//
//   Examples:
//     ./tidyrun check -e esp32
//     ./tidyrun check -e esp32 'components/.*' --changed -j 8
//     ./tidyrun check -e host --split-num 4 --split-at 2 --all-headers
//
// Signal Handling:
//   check captures SIGINT / SIGTERM, removes the temporary fix-output
//   directory, and exits 130. Results journaled before the interrupt
//   survive; the run itself is not resumed.
//
// Exit Codes:
//   0       every selected file passed (or only baselined failures)
//   1..254  the distinct-failure count
//   255     255 or more failures
//   130     interrupted
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/tidy-runner/internal/baseline"
	"github.com/ChuLiYu/tidy-runner/internal/buildmeta"
	"github.com/ChuLiYu/tidy-runner/internal/checker"
	"github.com/ChuLiYu/tidy-runner/internal/fileset"
	"github.com/ChuLiYu/tidy-runner/internal/metrics"
	"github.com/ChuLiYu/tidy-runner/internal/report"
	"github.com/ChuLiYu/tidy-runner/internal/runner"
)

var log = slog.Default()

var configFile string

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tidyrun",
		Short: "tidyrun: a parallel static-analysis runner",
		Long: `tidyrun drives an external static-analysis checker over a codebase:
- per-environment build metadata so the checker sees real compile flags
- fixed worker pool with a hard per-file timeout
- changed-files, pattern, grep and shard selection for CI fleets
- known-failure baseline for incremental adoption`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildCheckCommand())
	rootCmd.AddCommand(buildApplyFixesCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

// checkFlags carries every check-command flag; kept in one struct so the
// command builder and the run function stay in sync.
type checkFlags struct {
	environment    string
	jobs           int
	changed        bool
	diffBase       string
	grep           string
	splitNum       int
	splitAt        int
	allHeaders     bool
	fix            bool
	quiet          bool
	timeout        time.Duration
	updateBaseline bool
	reportPath     string
	baselinePath   string
	metricsPort    int
}

func buildCheckCommand() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check [file-pattern...]",
		Short: "Run the checker over the selected files",
		Long: `Select candidate files, run the external checker on each in parallel,
and exit with the number of files that reported failures. Positional
arguments are path regexes; a file is kept if any of them matches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.environment, "environment", "e", "", "build-metadata profile to check against")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "worker count (0 = config, then host CPU count)")
	cmd.Flags().BoolVarP(&flags.changed, "changed", "c", false, "check only files changed since the diff base")
	cmd.Flags().StringVar(&flags.diffBase, "diff-base", "", "ref the changed-files delta is taken against")
	cmd.Flags().StringVarP(&flags.grep, "grep", "g", "", "check only files whose content matches this regex")
	cmd.Flags().IntVar(&flags.splitNum, "split-num", 0, "total shard count for parallel CI jobs")
	cmd.Flags().IntVar(&flags.splitAt, "split-at", 1, "1-indexed shard this invocation runs")
	cmd.Flags().BoolVar(&flags.allHeaders, "all-headers", false, "inject a synthetic file including every tracked header")
	cmd.Flags().BoolVar(&flags.fix, "fix", false, "export suggested fixes and apply them after the run")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress the checker's per-file banner output")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "per-invocation hard timeout (overrides config)")
	cmd.Flags().BoolVar(&flags.updateBaseline, "update-baseline", false, "rewrite the baseline from this run's failures")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "JSONL result journal path (overrides config)")
	cmd.Flags().StringVar(&flags.baselinePath, "baseline", "", "known-failure baseline path (overrides config)")
	cmd.Flags().IntVar(&flags.metricsPort, "metrics-port", 0, "expose /metrics on this port during the run")
	cmd.MarkFlagRequired("environment")

	return cmd
}

func runCheck(flags checkFlags, patterns []string) error {
	cfg, err := buildmeta.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	env, err := cfg.Environment(flags.environment)
	if err != nil {
		return err
	}

	// Flags override config; config overrides defaults.
	if flags.jobs == 0 {
		flags.jobs = cfg.Runner.Jobs
	}
	if flags.reportPath == "" {
		flags.reportPath = cfg.Runner.ReportPath
	}
	if flags.baselinePath == "" {
		flags.baselinePath = cfg.Runner.BaselinePath
	}
	if flags.metricsPort == 0 && cfg.Runner.MetricsEnabled {
		flags.metricsPort = cfg.Runner.MetricsPort
	}
	if flags.timeout == 0 {
		flags.timeout = cfg.Runner.Timeout
	}

	chk := &checker.Checker{
		Binary:       cfg.Checker.Binary,
		ApplyBinary:  cfg.Checker.ApplyBinary,
		HeaderFilter: cfg.Checker.HeaderFilter,
		Quiet:        flags.quiet,
		Timeout:      flags.timeout,
		OutputLimit:  cfg.Runner.OutputLimit,
		BaseArgs:     buildmeta.BuildArgs(env),
		UsePTY:       checker.InteractiveStdout(),
	}

	ctx := context.Background()

	version, err := chk.Probe(ctx)
	if err != nil {
		return err
	}
	log.Info("Checker resolved", "binary", cfg.Checker.Binary, "version", version)

	if flags.fix {
		fixDir, err := checker.NewFixDir()
		if err != nil {
			return err
		}
		chk.FixDir = fixDir
		defer checker.CleanupFixDir(fixDir)
	}

	probeDir, err := os.MkdirTemp("", "tidyrun-probe-")
	if err != nil {
		return fmt.Errorf("failed to create probe directory: %w", err)
	}
	defer os.RemoveAll(probeDir)

	// An interrupt must not leave temp artifacts or orphaned checker
	// subprocesses behind: clean up, then take the whole process group down.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("Interrupted, shutting down", "signal", sig)
		checker.CleanupFixDir(chk.FixDir)
		os.RemoveAll(probeDir)
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
		syscall.Kill(-os.Getpid(), syscall.SIGTERM)
		os.Exit(130)
	}()

	lister := fileset.NewGitLister("", flags.diffBase)
	files, err := fileset.Select(lister, cfg.Runner.SourceExt, cfg.Runner.HeaderExt, fileset.Options{
		Patterns:    patterns,
		ChangedOnly: flags.changed,
		Grep:        flags.grep,
		SplitNum:    flags.splitNum,
		SplitAt:     flags.splitAt,
		AllHeaders:  flags.allHeaders,
		ProbeDir:    probeDir,
	})
	if err != nil {
		return fmt.Errorf("file selection failed: %w", err)
	}

	if len(files) == 0 {
		fmt.Println("No files selected; nothing to check.")
		return nil
	}

	var baselineSet map[string]struct{}
	var baselineMgr *baseline.Manager
	if flags.baselinePath != "" {
		baselineMgr = baseline.NewManager(flags.baselinePath)
		baselineSet, err = baselineMgr.Load()
		if err != nil {
			return err
		}
	}

	var journal *report.Writer
	if flags.reportPath != "" {
		journal, err = report.Create(flags.reportPath, flags.environment, len(files))
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	var collector *metrics.Collector
	if flags.metricsPort > 0 {
		collector = metrics.NewCollector(nil)
		go func() {
			log.Info("Starting metrics server", "port", flags.metricsPort)
			if err := metrics.StartServer(flags.metricsPort); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	driver, err := runner.NewDriver(chk, runner.DriverConfig{
		Jobs:        flags.jobs,
		Files:       files,
		Environment: flags.environment,
		Metrics:     collector,
		Report:      journal,
		Baseline:    baselineSet,
	})
	if err != nil {
		return err
	}

	summary, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nChecked %d files: %d passed, %d failed", summary.Total, summary.Passed, summary.Failed)
	if summary.TimedOut > 0 {
		fmt.Printf(" (%d timed out)", summary.TimedOut)
	}
	fmt.Printf(" in %s\n", summary.Duration.Round(time.Millisecond))

	if flags.fix && len(driver.FailedPaths()) > 0 {
		log.Info("Applying exported fixes", "dir", chk.FixDir)
		if err := chk.ApplyFixes(ctx); err != nil {
			// Fix application failing never changes the run's own status.
			fmt.Fprintf(os.Stderr, "fix application failed: %v\n", err)
		}
	}

	if flags.updateBaseline {
		if baselineMgr == nil {
			return fmt.Errorf("--update-baseline requires a baseline path (flag or config)")
		}
		if err := baselineMgr.Write(driver.FailedPaths()); err != nil {
			return err
		}
		log.Info("Baseline updated", "path", baselineMgr.Path(), "files", len(driver.FailedPaths()))
	}

	if journal != nil {
		journal.Close()
	}
	if code := runner.ExitCode(summary.Failed); code != 0 {
		checker.CleanupFixDir(chk.FixDir)
		os.Exit(code)
	}
	return nil
}

func buildApplyFixesCommand() *cobra.Command {
	var fixDir string

	cmd := &cobra.Command{
		Use:   "apply-fixes",
		Short: "Apply previously exported fixes",
		Long:  "Run the fix applier against a directory of exported fix files, e.g. one preserved from an interrupted --fix run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyFixes(fixDir)
		},
	}

	cmd.Flags().StringVarP(&fixDir, "dir", "d", "", "directory holding the exported fix files")
	cmd.MarkFlagRequired("dir")

	return cmd
}

func applyFixes(fixDir string) error {
	cfg, err := buildmeta.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	chk := &checker.Checker{
		ApplyBinary: cfg.Checker.ApplyBinary,
		FixDir:      fixDir,
	}
	if err := chk.ApplyFixes(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Applied fixes from %s\n", fixDir)
	return nil
}

func buildStatusCommand() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the last run",
		Long:  "Replay the JSONL result journal of the last run and display its summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "JSONL result journal path (overrides config)")

	return cmd
}

func showStatus(reportPath string) error {
	var baselinePath string
	if cfg, err := buildmeta.Load(configFile); err == nil {
		if reportPath == "" {
			reportPath = cfg.Runner.ReportPath
		}
		baselinePath = cfg.Runner.BaselinePath
	}
	if reportPath == "" {
		return fmt.Errorf("no report journal configured (set runner.report_path or pass --report)")
	}

	summary, err := report.Summarize(reportPath)
	if err != nil {
		return err
	}

	fmt.Println("\n╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 tidyrun Last Run Summary                  ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  ├─ Journal:      %s\n", reportPath)
	fmt.Printf("  ├─ Environment:  %s\n", summary.Environment)
	fmt.Printf("  ├─ Selected:     %d files\n", summary.Total)
	fmt.Printf("  ├─ Passed:       %d\n", summary.Passed)
	fmt.Printf("  ├─ Failed:       %d\n", summary.Failed)
	fmt.Printf("  └─ Timed out:    %d\n", summary.TimedOut)
	fmt.Println()

	recorded := summary.Passed + summary.Failed
	if recorded < summary.Total {
		fmt.Printf("  Journal is partial: %d of %d results recorded (interrupted run?)\n\n", recorded, summary.Total)
	}

	if baselinePath != "" {
		mgr := baseline.NewManager(baselinePath)
		if mgr.Exists() {
			known, err := mgr.Load()
			if err != nil {
				return err
			}
			fmt.Printf("  Baseline: %d known failures (%s)\n\n", len(known), baselinePath)
		}
	}

	return nil
}
