// Package store implements dpt's content-addressed package store: fetch,
// decompress, and atomically install package archives into immutable
// directories named "<name>-<version>", each certified by a sentinel file
// once unpacking completes.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dpt-pm/dpt/internal/archive"
	"github.com/dpt-pm/dpt/internal/pkgmeta"
	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/solver"
	"github.com/dpt-pm/dpt/internal/version"
)

// ArchiveFetcher retrieves the raw bytes of a resolved record's archive.
// dpt's production implementation lives in internal/fetch.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, url string) (io.ReadCloser, error)
}

// Outcome reports what Install actually did.
type Outcome int

const (
	// Installed means the archive was freshly fetched and unpacked.
	Installed Outcome = iota
	// Ignored means a complete, sentinel-certified entry already existed
	// and reinstall was not requested.
	Ignored
)

// Store is a single content-addressed package root.
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) *Store { return &Store{Root: root} }

// EntryDir returns "<store>/<name>-<version>" for pkg.
func (s *Store) EntryDir(pkg version.Package) string {
	return filepath.Join(s.Root, pkg.String())
}

func sentinelPath(entryDir string) string {
	return filepath.Join(entryDir, pkgmeta.MetaDirName, pkgmeta.SentinelName)
}

// hasSentinel reports whether entryDir is installed and intact: the
// sentinel's presence is the sole definition of that.
func hasSentinel(entryDir string) bool {
	_, err := os.Stat(sentinelPath(entryDir))
	return err == nil
}

// Install materializes rec into the store. If the entry already exists and
// is sentinel-certified, Install returns Ignored unless reinstall is set,
// in which case the existing entry is removed and rebuilt. If unpacking
// fails partway through, the sentinel is never written, so the next
// Install call recognizes the entry as partial and redoes it.
func (s *Store) Install(ctx context.Context, rec repoindex.Record, fetcher ArchiveFetcher, reinstall bool) (Outcome, error) {
	entryDir := s.EntryDir(rec.Package())

	if hasSentinel(entryDir) {
		if !reinstall {
			return Ignored, nil
		}
		if err := os.RemoveAll(entryDir); err != nil {
			return 0, fmt.Errorf("removing existing store entry %s for reinstall: %w", entryDir, err)
		}
	} else if _, err := os.Stat(entryDir); err == nil {
		// A partial tree from a previous interrupted install. Tear it
		// down before redoing it.
		if err := os.RemoveAll(entryDir); err != nil {
			return 0, fmt.Errorf("removing partial store entry %s: %w", entryDir, err)
		}
	}

	body, err := fetcher.FetchArchive(ctx, rec.URL)
	if err != nil {
		return 0, fmt.Errorf("fetching archive for %s from %s: %w", rec.Package(), rec.URL, err)
	}
	defer body.Close()

	if err := os.MkdirAll(entryDir, 0777); err != nil {
		return 0, fmt.Errorf("creating store entry %s: %w", entryDir, err)
	}

	if err := archive.Extract(body, entryDir); err != nil {
		return 0, fmt.Errorf("unpacking archive for %s: %w", rec.Package(), err)
	}

	// The archive may already carry its own glue declarations at
	// "<entry>/.dpt/pkg.yaml"; preserve those while stamping the
	// resolver's own idea of this package's identity and dependencies,
	// since the repository index is the authority dpt trusts for both.
	meta := &pkgmeta.Meta{Name: rec.Name, Version: rec.Version, Depends: rec.Depends}
	if existing, err := pkgmeta.Read(entryDir); err == nil {
		meta.Glue = existing.Glue
	}
	if err := pkgmeta.Write(entryDir, meta); err != nil {
		return 0, fmt.Errorf("writing metadata for %s: %w", rec.Package(), err)
	}

	if err := os.WriteFile(sentinelPath(entryDir), nil, 0666); err != nil {
		return 0, fmt.Errorf("writing sentinel for %s: %w", rec.Package(), err)
	}

	return Installed, nil
}

// InstallClosure resolves selected against records and installs every
// resulting record in solver order. Only the explicitly selected packages
// honor reinstall; packages pulled in only as dependencies are never
// force-reinstalled just because a root package was.
func (s *Store) InstallClosure(ctx context.Context, selected []solver.Selected, records []repoindex.Record, fetcher ArchiveFetcher, reinstall bool) ([]repoindex.Record, error) {
	closure, err := solver.Resolve(selected, records)
	if err != nil {
		return nil, err
	}

	selectedNames := make(map[string]bool, len(selected))
	for _, sel := range selected {
		selectedNames[sel.Name] = true
	}

	for _, rec := range closure {
		rootReinstall := reinstall && selectedNames[rec.Name]
		if _, err := s.Install(ctx, rec, fetcher, rootReinstall); err != nil {
			return nil, err
		}
	}

	return closure, nil
}
