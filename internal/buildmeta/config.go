// ============================================================================
// tidy-runner Build Metadata - configuration profiles
// ============================================================================
//
// Package: internal/buildmeta
// File: config.go
// Purpose: Load the YAML configuration file holding per-environment build
// metadata (compiler flags, preprocessor defines, include directories) plus
// checker and runner settings.
//
// The metadata mirrors how each file is normally compiled so that the
// external checker's embedded parser sees the same flags as the real build.
// Profiles are selected with -e/--environment on the command line.
//
// ============================================================================

package buildmeta

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrUnknownEnvironment is returned when the requested profile is not
	// present in the configuration file.
	ErrUnknownEnvironment = errors.New("unknown build environment")
	// ErrNoEnvironments is returned when the configuration defines no
	// environments at all.
	ErrNoEnvironments = errors.New("configuration defines no environments")
)

// ============================================================================
// Data structures
// ============================================================================

// IncludeDirs splits include directories by origin. System directories hold
// dependency headers whose diagnostics we suppress; project directories are
// our own code.
type IncludeDirs struct {
	System  []string `yaml:"system"`
	Project []string `yaml:"project"`
}

// Environment is one build-metadata profile: the flags, defines and include
// paths a file in this environment is compiled with.
type Environment struct {
	Flags       []string    `yaml:"flags"`
	Defines     []string    `yaml:"defines"`
	IncludeDirs IncludeDirs `yaml:"include_dirs"`
}

// Config is the full configuration file.
type Config struct {
	Checker struct {
		Binary       string `yaml:"binary"`        // checker executable, resolved on PATH
		ApplyBinary  string `yaml:"apply_binary"`  // suggested-fix applier executable
		HeaderFilter string `yaml:"header_filter"` // regex restricting diagnostics to project headers
	} `yaml:"checker"`

	Runner struct {
		Jobs           int           `yaml:"jobs"`             // 0 = host CPU count
		Timeout        time.Duration `yaml:"timeout"`          // per-invocation hard timeout
		OutputLimit    int           `yaml:"output_limit"`     // captured output cap in bytes
		SourceExt      string        `yaml:"source_ext"`       // candidate file extension
		HeaderExt      string        `yaml:"header_ext"`       // header extension for the all-headers probe
		MetricsEnabled bool          `yaml:"metrics_enabled"`  // expose /metrics during the run
		MetricsPort    int           `yaml:"metrics_port"`     //
		BaselinePath   string        `yaml:"baseline_path"`    // known-failure baseline file
		ReportPath     string        `yaml:"report_path"`      // JSONL result journal
	} `yaml:"runner"`

	Environments map[string]Environment `yaml:"environments"`
}

// ============================================================================
// Loading
// ============================================================================

// Defaults applied when the configuration leaves a field zero.
const (
	DefaultCheckerBinary = "clang-tidy"
	DefaultApplyBinary   = "clang-apply-replacements"
	DefaultTimeout       = 15 * time.Minute
	DefaultOutputLimit   = 1 << 20 // 1 MiB per invocation
	DefaultSourceExt     = ".cpp"
	DefaultHeaderExt     = ".h"
)

// Load reads and validates the configuration file. A malformed file or a
// file with no environments is a fatal setup error: the caller must abort
// before scheduling any work.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if len(cfg.Environments) == 0 {
		return nil, ErrNoEnvironments
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Checker.Binary == "" {
		c.Checker.Binary = DefaultCheckerBinary
	}
	if c.Checker.ApplyBinary == "" {
		c.Checker.ApplyBinary = DefaultApplyBinary
	}
	if c.Runner.Timeout == 0 {
		c.Runner.Timeout = DefaultTimeout
	}
	if c.Runner.OutputLimit == 0 {
		c.Runner.OutputLimit = DefaultOutputLimit
	}
	if c.Runner.SourceExt == "" {
		c.Runner.SourceExt = DefaultSourceExt
	}
	if c.Runner.HeaderExt == "" {
		c.Runner.HeaderExt = DefaultHeaderExt
	}
}

// Environment returns the named profile. Requesting a profile the file does
// not define is a configuration error, surfaced before any work begins.
func (c *Config) Environment(name string) (Environment, error) {
	env, ok := c.Environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("%w: %q (have: %v)", ErrUnknownEnvironment, name, c.EnvironmentNames())
	}
	return env, nil
}

// EnvironmentNames returns the defined profile names, sorted for stable
// error messages and help output.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
