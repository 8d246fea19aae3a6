// Package config resolves <dpt-dir>, the single configuration root that
// holds the store, the base skeleton, the sandbox scratch area, the
// manifest, the lockfile, and the repository list.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DirOverrideFile is read for a single-line override of the dpt directory.
const DirOverrideFile = "/etc/dpt/dir"

// DefaultDir is used when DirOverrideFile does not exist.
const DefaultDir = "/dpt"

// Dir returns the configured <dpt-dir>, following DirOverrideFile if
// present.
func Dir() string {
	b, err := os.ReadFile(DirOverrideFile)
	if err != nil {
		return DefaultDir
	}

	dir := strings.TrimSpace(string(b))
	if dir == "" {
		return DefaultDir
	}
	return dir
}

// StoreDir returns <dpt-dir>/store.
func StoreDir() string { return filepath.Join(Dir(), "store") }

// BaseDir returns <dpt-dir>/base.
func BaseDir() string { return filepath.Join(Dir(), "base") }

// BaseBackupDir returns <dpt-dir>/base.bak.
func BaseBackupDir() string { return filepath.Join(Dir(), "base.bak") }

// RunDir returns <dpt-dir>/run, the sandbox scratch root.
func RunDir() string { return filepath.Join(Dir(), "run") }

// ManifestPath returns <dpt-dir>/dpt.yaml.
func ManifestPath() string { return filepath.Join(Dir(), "dpt.yaml") }

// LockfilePath returns <dpt-dir>/dpt.lock.
func LockfilePath() string { return filepath.Join(Dir(), "dpt.lock") }

// ReposPath returns <dpt-dir>/repos.
func ReposPath() string { return filepath.Join(Dir(), "repos") }

// Repositories reads one repository base URL per non-blank line from
// ReposPath.
func Repositories() ([]string, error) {
	b, err := os.ReadFile(ReposPath())
	if err != nil {
		return nil, err
	}

	var repos []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			repos = append(repos, line)
		}
	}
	return repos, nil
}
