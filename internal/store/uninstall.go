package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dpt-pm/dpt/internal/pkgmeta"
	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/version"
)

// installedEntry pairs a store entry's metadata with the directory it was
// read from.
type installedEntry struct {
	dir  string
	meta *pkgmeta.Meta
}

// listInstalled walks the store root and returns every sentinel-certified
// entry's metadata. Partial entries left over from an interrupted install
// are skipped rather than reported; entries whose metadata fragment is
// missing or malformed are skipped with a warning on stderr.
func (s *Store) listInstalled() ([]installedEntry, error) {
	dirEntries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store root %s: %w", s.Root, err)
	}

	var out []installedEntry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		dir := filepath.Join(s.Root, de.Name())
		if !hasSentinel(dir) {
			continue
		}
		meta, err := pkgmeta.Read(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping store entry %s: %v\n", dir, err)
			continue
		}
		out = append(out, installedEntry{dir: dir, meta: meta})
	}
	return out, nil
}

// InstalledPackages returns the repository records backing every installed
// store entry. If requireLocked is set, the result is narrowed to the
// packages named in lockfilePackages, and every one of them must be present
// among the installed entries, or InstalledPackages fails: this is the
// cross-check dpt runs before trusting the lockfile as an accurate
// description of store state.
func (s *Store) InstalledPackages(lockfilePackages []version.Package, requireLocked bool) ([]repoindex.Record, error) {
	entries, err := s.listInstalled()
	if err != nil {
		return nil, err
	}

	records := make([]repoindex.Record, 0, len(entries))
	installed := make(map[string]bool, len(entries))
	for _, e := range entries {
		records = append(records, repoindex.Record{
			Name:    e.meta.Name,
			Version: e.meta.Version,
			Depends: e.meta.Depends,
		})
		installed[version.Package{Name: e.meta.Name, Version: e.meta.Version}.String()] = true
	}

	if requireLocked {
		locked := make(map[string]bool, len(lockfilePackages))
		for _, pkg := range lockfilePackages {
			if !installed[pkg.String()] {
				return nil, fmt.Errorf("lockfile names %s but it is not installed", pkg)
			}
			locked[pkg.String()] = true
		}
		kept := records[:0]
		for _, rec := range records {
			if locked[rec.Package().String()] {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	return records, nil
}

// MarkManuallyInstalled records that pkg was explicitly requested, rather
// than pulled in only to satisfy another package's dependency. Uninstall's
// orphan sweep never removes a manually-installed package on its own.
func (s *Store) MarkManuallyInstalled(pkg version.Package) error {
	entryDir := s.EntryDir(pkg)
	path := filepath.Join(entryDir, pkgmeta.MetaDirName, pkgmeta.ManualMarkerName)
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return fmt.Errorf("marking %s manually installed: %w", pkg, err)
	}
	return os.WriteFile(path, nil, 0666)
}

// IsManuallyInstalled reports whether pkg carries the manual-install marker.
func (s *Store) IsManuallyInstalled(pkg version.Package) bool {
	path := filepath.Join(s.EntryDir(pkg), pkgmeta.MetaDirName, pkgmeta.ManualMarkerName)
	_, err := os.Stat(path)
	return err == nil
}

// dependencyCount reports, for each installed package by name, how many
// other installed packages declare a dependency on it.
func dependencyCount(entries []installedEntry) map[string]int {
	count := make(map[string]int, len(entries))
	for _, e := range entries {
		if _, ok := count[e.meta.Name]; !ok {
			count[e.meta.Name] = 0
		}
	}
	for _, e := range entries {
		for _, dep := range e.meta.Depends {
			count[dep.Name]++
		}
	}
	return count
}

// Uninstall removes pkg from the store, then sweeps away any now-orphaned
// package left with zero remaining dependers that was never itself
// manually installed. Each pass may orphan further packages, so sweeping
// repeats until a pass removes nothing.
func (s *Store) Uninstall(pkg version.Package) error {
	entries, err := s.listInstalled()
	if err != nil {
		return err
	}

	counts := dependencyCount(entries)
	if counts[pkg.Name] > 0 {
		var dependers []string
		for _, e := range entries {
			for _, dep := range e.meta.Depends {
				if dep.Name == pkg.Name {
					dependers = append(dependers, e.meta.Name)
				}
			}
		}
		return fmt.Errorf("package %s is depended upon by: %v, refusing to uninstall", pkg.Name, dependers)
	}

	if err := s.removeEntry(pkg, entries); err != nil {
		return err
	}

	return s.sweepOrphans()
}

// sweepOrphans repeatedly removes installed packages that have zero
// remaining dependers and were never manually installed, until a pass
// removes nothing.
func (s *Store) sweepOrphans() error {
	for {
		entries, err := s.listInstalled()
		if err != nil {
			return err
		}
		counts := dependencyCount(entries)

		removedAny := false
		for _, e := range entries {
			p := version.Package{Name: e.meta.Name, Version: e.meta.Version}
			if counts[e.meta.Name] == 0 && !s.IsManuallyInstalled(p) {
				if err := s.removeEntry(p, entries); err != nil {
					return err
				}
				removedAny = true
			}
		}
		if !removedAny {
			return nil
		}
	}
}

func (s *Store) removeEntry(pkg version.Package, entries []installedEntry) error {
	for _, e := range entries {
		if e.meta.Name == pkg.Name && version.Compare(e.meta.Version, pkg.Version) == version.Equal {
			return os.RemoveAll(e.dir)
		}
	}
	return os.RemoveAll(s.EntryDir(pkg))
}
