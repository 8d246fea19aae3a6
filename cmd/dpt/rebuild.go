package main

import (
	"context"
	"fmt"

	"github.com/dpt-pm/dpt/internal/base"
	"github.com/dpt-pm/dpt/internal/config"
	"github.com/dpt-pm/dpt/internal/fetch"
	"github.com/dpt-pm/dpt/internal/manifest"
	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/solver"
	"github.com/dpt-pm/dpt/internal/store"
	"github.com/dpt-pm/dpt/internal/version"
)

// cmdRebuild implements "rebuild": read manifest → resolve → install
// closure → rebuild base → write lockfile.
func cmdRebuild(dptDir string) (int, error) {
	m, err := manifest.Read(config.ManifestPath())
	if err != nil {
		return 64, fmt.Errorf("reading manifest: %w", err)
	}

	records, err := fetchIndex()
	if err != nil {
		return 69, fmt.Errorf("fetching repository index: %w", err)
	}

	selected := make([]solver.Selected, len(m.Packages))
	for i, p := range m.Packages {
		selected[i] = solver.Selected{Name: p.Name, Version: p.Version}
	}

	s := store.New(config.StoreDir())
	log.Info().Int("requested", len(selected)).Msg("resolving manifest")

	closure, err := s.InstallClosure(context.Background(), selected, records, &fetch.HTTPFetcher{}, false)
	if err != nil {
		return 69, fmt.Errorf("resolving and installing: %w", err)
	}
	log.Info().Int("installed", len(closure)).Msg("install closure complete")

	for _, p := range m.Packages {
		// A bare name with no pinned version is marked manually installed
		// against whichever version the solver actually picked.
		pkg := resolveClosureVersion(closure, p.Name)
		if err := s.MarkManuallyInstalled(pkg); err != nil {
			return 1, fmt.Errorf("marking %s manually installed: %w", pkg, err)
		}
	}

	if err := base.Rebuild(m, dptDir); err != nil {
		return 1, fmt.Errorf("rebuilding base: %w", err)
	}
	log.Info().Msg("base rebuilt")

	lock := *m
	lock.Packages = make([]manifest.RequestedPackage, len(closure))
	for i, rec := range closure {
		lock.Packages[i] = manifest.RequestedPackage{Name: rec.Name, Version: rec.Version}
	}
	if err := manifest.Write(config.LockfilePath(), &lock); err != nil {
		return 1, fmt.Errorf("writing lockfile: %w", err)
	}

	return 0, nil
}

func resolveClosureVersion(closure []repoindex.Record, name string) version.Package {
	for _, rec := range closure {
		if rec.Name == name {
			return rec.Package()
		}
	}
	return version.Package{Name: name}
}

func fetchIndex() ([]repoindex.Record, error) {
	repos, err := config.Repositories()
	if err != nil {
		return nil, fmt.Errorf("reading repository list: %w", err)
	}
	return repoindex.FetchAll(context.Background(), &fetch.HTTPFetcher{}, repos)
}
