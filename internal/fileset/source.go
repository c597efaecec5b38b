// ============================================================================
// tidy-runner File Source Interface
// ============================================================================
//
// Package: internal/fileset
// File: source.go
// Purpose: Defines the abstraction over source-control file enumeration.
//
// Motivation:
//   Candidate selection must be testable without a git checkout, and the CI
//   entry point must not care where the file list comes from. A Lister
//   yields tracked files and the changed-files delta; the selection pipeline
//   is pure on top of it.
//
//   - GitLister: shells out to git (production).
//   - StaticLister: fixed in-memory lists (tests).
//
// ============================================================================

package fileset

import (
	"fmt"
	"os/exec"
	"strings"
)

// Lister enumerates candidate files from source control.
type Lister interface {
	// Tracked returns every tracked file whose path ends in ext.
	Tracked(ext string) ([]string, error)

	// Changed returns the paths touched since the diff base.
	Changed() ([]string, error)
}

// GitLister enumerates files by shelling out to git.
type GitLister struct {
	RepoRoot string // working directory for git, "" = current
	DiffBase string // ref the changed-files delta is taken against
}

// NewGitLister returns a lister rooted at dir, diffing against base.
func NewGitLister(dir, base string) *GitLister {
	if base == "" {
		base = "origin/main"
	}
	return &GitLister{RepoRoot: dir, DiffBase: base}
}

// Tracked lists tracked files matching *ext via git ls-files.
func (g *GitLister) Tracked(ext string) ([]string, error) {
	return g.run("ls-files", "--", "*"+ext)
}

// Changed lists files touched since the merge base with DiffBase.
func (g *GitLister) Changed() ([]string, error) {
	base, err := g.run("merge-base", "HEAD", g.DiffBase)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve merge base with %s: %w", g.DiffBase, err)
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("empty merge base with %s", g.DiffBase)
	}
	return g.run("diff", "--name-only", base[0])
}

func (g *GitLister) run(args ...string) ([]string, error) {
	cmd := exec.Command("git", args...)
	if g.RepoRoot != "" {
		cmd.Dir = g.RepoRoot
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w", args[0], err)
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// StaticLister serves fixed lists; used by tests and the status command.
type StaticLister struct {
	Files      []string // returned by Tracked, pre-filtered by extension
	ChangedSet []string // returned by Changed
}

// Tracked returns the entries of Files ending in ext.
func (s *StaticLister) Tracked(ext string) ([]string, error) {
	var out []string
	for _, f := range s.Files {
		if strings.HasSuffix(f, ext) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Changed returns the configured changed set.
func (s *StaticLister) Changed() ([]string, error) {
	return s.ChangedSet, nil
}
