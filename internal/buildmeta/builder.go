// ============================================================================
// tidy-runner Invocation Builder
// ============================================================================
//
// Package: internal/buildmeta
// File: builder.go
// Purpose: Turn one environment's build metadata into the deterministic,
// ordered compiler-flag token list appended after "--" on every checker
// invocation.
//
// Token order is fixed:
//   1. portability overrides (prepended unconditionally)
//   2. metadata flags, minus the denylist the checker's parser rejects
//   3. one -D token per define, individually escaped
//   4. -isystem tokens for system include dirs, -I tokens for project dirs
//
// Include directories under the toolchain subdirectory are skipped no matter
// which category they were listed in: the checker ships its own headers for
// the target and chokes on the cross-toolchain's copies.
//
// This is pure data transformation. The same Environment always yields the
// same token list, so every worker shares one immutable slice for the whole
// run.
//
// ============================================================================

package buildmeta

import (
	"strings"
)

// PortabilityOverrides are prepended to every invocation so the checker
// tolerates flags emitted for the cross compiler.
var PortabilityOverrides = []string{
	"-Wno-unknown-warning-option",
	"-Wno-ignored-optimization-argument",
	"-Wno-unused-command-line-argument",
}

// flagDenylist holds metadata flags the checker's embedded parser rejects.
// These are target-specific codegen flags with no analysis-side meaning.
var flagDenylist = map[string]struct{}{
	"-fno-tree-switch-conversion": {},
	"-fstrict-volatile-bitfields": {},
	"-fno-shrink-wrap":            {},
	"-mlongcalls":                 {},
	"-mtext-section-literals":     {},
	"-mfix-esp32-psram-cache-issue": {},
}

// toolchainDir names the include subdirectory excluded regardless of
// category; see the package comment.
const toolchainDir = "xtensa"

// BuildArgs produces the full compiler-flag half of each future invocation.
// The result is computed once per run and never mutated afterwards.
func BuildArgs(env Environment) []string {
	args := make([]string, 0, len(PortabilityOverrides)+len(env.Flags)+len(env.Defines)+
		2*(len(env.IncludeDirs.System)+len(env.IncludeDirs.Project)))

	args = append(args, PortabilityOverrides...)

	for _, flag := range env.Flags {
		if _, denied := flagDenylist[flag]; denied {
			continue
		}
		args = append(args, flag)
	}

	for _, define := range env.Defines {
		args = append(args, "-D"+EscapeDefine(define))
	}

	for _, dir := range env.IncludeDirs.System {
		if isToolchainDir(dir) {
			continue
		}
		args = append(args, "-isystem", dir)
	}
	for _, dir := range env.IncludeDirs.Project {
		if isToolchainDir(dir) {
			continue
		}
		args = append(args, "-I"+dir)
	}

	return args
}

// EscapeDefine escapes one preprocessor define so that values containing
// quotes survive the checker's re-parsing of the compile command.
func EscapeDefine(define string) string {
	if !strings.ContainsAny(define, `"\`) {
		return define
	}
	var b strings.Builder
	b.Grow(len(define) + 4)
	for _, r := range define {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isToolchainDir(dir string) bool {
	for _, part := range strings.Split(dir, "/") {
		if part == toolchainDir {
			return true
		}
	}
	return false
}
