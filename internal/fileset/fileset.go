// ============================================================================
// tidy-runner File Selection
// ============================================================================
//
// Package: internal/fileset
// File: fileset.go
// Purpose: Produce the deterministically ordered, deduplicated candidate
// file list for one run.
//
// Pipeline (fixed order, all narrowing filters compose by intersection):
//   1. tracked files matching the source extension
//   2. caller regex patterns (union via alternation)
//   3. changed-files delta membership
//   4. content-grep containment
//   5. dedupe + sort
//   6. shard split (contiguous, 1-indexed, sizes differ by at most one)
//   7. all-headers probe injection (shard 1 or unsharded only)
//
// The list is sorted before the shard split so that independently launched
// job runners agree on the partition given the same inputs.
//
// ============================================================================

package fileset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrBadShard is returned for an out-of-range or inconsistent
	// --split-num / --split-at pair.
	ErrBadShard = errors.New("invalid shard selection")
)

// ProbeName is the basename (minus extension) of the synthetic translation
// unit that forces every tracked header through the checker.
const ProbeName = "all-headers"

// Options narrow and partition the candidate list.
type Options struct {
	Patterns    []string // path regexes; a file is kept if any matches
	ChangedOnly bool     // intersect with the changed-files delta
	Grep        string   // keep only files whose content matches this regex
	SplitNum    int      // shard count, 0 or 1 = unsharded
	SplitAt     int      // 1-indexed shard to keep
	AllHeaders  bool     // inject the synthetic all-headers probe
	ProbeDir    string   // directory the probe file is generated into
}

// Select runs the full pipeline and returns the ordered work list.
func Select(lister Lister, sourceExt, headerExt string, opts Options) ([]string, error) {
	files, err := lister.Tracked(sourceExt)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tracked files: %w", err)
	}

	if len(opts.Patterns) > 0 {
		files, err = filterPatterns(files, opts.Patterns)
		if err != nil {
			return nil, err
		}
	}

	if opts.ChangedOnly {
		changed, err := lister.Changed()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate changed files: %w", err)
		}
		files = intersect(files, changed)
	}

	if opts.Grep != "" {
		files, err = filterContent(files, opts.Grep)
		if err != nil {
			return nil, err
		}
	}

	files = sortedUnique(files)

	if opts.SplitNum > 1 {
		files, err = Shard(files, opts.SplitNum, opts.SplitAt)
		if err != nil {
			return nil, err
		}
	}

	// The probe joins after sharding so the partition arithmetic runs over
	// the real file list. Only one job runner may carry it.
	if opts.AllHeaders && (opts.SplitNum <= 1 || opts.SplitAt == 1) {
		probe, err := writeProbe(lister, headerExt, sourceExt, opts.ProbeDir)
		if err != nil {
			return nil, err
		}
		files = append(files, probe)
	}

	return files, nil
}

// filterPatterns keeps files matching the union of the caller's regexes.
func filterPatterns(files, patterns []string) ([]string, error) {
	re, err := regexp.Compile("(" + strings.Join(patterns, ")|(") + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern: %w", err)
	}
	var out []string
	for _, f := range files {
		if re.MatchString(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// filterContent keeps files whose bytes match the pattern.
func filterContent(files []string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid grep pattern: %w", err)
	}
	var out []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s for grep filter: %w", f, err)
		}
		if re.Match(data) {
			out = append(out, f)
		}
	}
	return out, nil
}

func intersect(files, keep []string) []string {
	set := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}
	var out []string
	for _, f := range files {
		if _, ok := set[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func sortedUnique(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Shard returns the at-th of num contiguous slices of files (1-indexed).
// Shard sizes differ by at most one and the union over all shards is the
// input list; files must already be sorted for the partition to be
// reproducible across invocations.
func Shard(files []string, num, at int) ([]string, error) {
	if num < 1 || at < 1 || at > num {
		return nil, fmt.Errorf("%w: split-at %d of split-num %d", ErrBadShard, at, num)
	}
	size := len(files) / num
	rem := len(files) % num

	// The first rem shards carry one extra file.
	start := (at - 1) * size
	if at-1 < rem {
		start += at - 1
	} else {
		start += rem
	}
	end := start + size
	if at-1 < rem {
		end++
	}
	return files[start:end], nil
}

// writeProbe generates a translation unit including every tracked header.
// Headers with no corresponding compiled source are otherwise never parsed;
// this probe drags them through the checker once.
func writeProbe(lister Lister, headerExt, sourceExt, dir string) (string, error) {
	headers, err := lister.Tracked(headerExt)
	if err != nil {
		return "", fmt.Errorf("failed to enumerate headers for probe: %w", err)
	}
	headers = sortedUnique(headers)

	var b strings.Builder
	b.WriteString("// Generated by tidyrun --all-headers. Do not commit.\n")
	for _, h := range headers {
		fmt.Fprintf(&b, "#include \"%s\"\n", h)
	}

	path := filepath.Join(dir, ProbeName+sourceExt)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write all-headers probe: %w", err)
	}
	return path, nil
}
