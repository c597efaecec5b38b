// ============================================================================
// tidy-runner Baseline - known-failure suppression
// ============================================================================
//
// Package: internal/baseline
// File: baseline.go
// Purpose: Persist the set of files already known to fail so a codebase can
// adopt the checker incrementally: baselined failures are still printed but
// do not count toward the exit status. --update-baseline rewrites the file
// from the current run's failures.
//
// The file is JSON, written atomically (temp file + rename) so a crash
// mid-update never leaves a truncated baseline, and versioned so an old
// binary refuses a newer schema instead of misreading it.
//
// ============================================================================

package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	ErrCorruptedBaseline   = errors.New("baseline file is corrupted")
	ErrIncompatibleVersion = errors.New("baseline schema version is incompatible")
)

const schemaVersion = 1

// fileFormat is the on-disk shape.
type fileFormat struct {
	SchemaVer int      `json:"schema_ver"`
	Files     []string `json:"files"`
}

// Manager loads and stores the baseline file.
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager returns a manager for the baseline at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the known-failure set. A missing file is an empty baseline,
// not an error: the first run of a new repository has nothing to suppress.
func (m *Manager) Load() (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedBaseline, err)
	}
	if ff.SchemaVer != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, ff.SchemaVer, schemaVersion)
	}

	set := make(map[string]struct{}, len(ff.Files))
	for _, f := range ff.Files {
		set[f] = struct{}{}
	}
	return set, nil
}

// Write atomically replaces the baseline with the given failing paths.
func (m *Manager) Write(failed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := append([]string(nil), failed...)
	sort.Strings(files)

	data, err := json.MarshalIndent(fileFormat{SchemaVer: schemaVersion, Files: files}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp baseline: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename baseline: %w", err)
	}
	return nil
}

// Exists reports whether a baseline file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the baseline file path.
func (m *Manager) Path() string {
	return m.path
}
