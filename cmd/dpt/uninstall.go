package main

import (
	"fmt"

	"github.com/dpt-pm/dpt/internal/config"
	"github.com/dpt-pm/dpt/internal/manifest"
	"github.com/dpt-pm/dpt/internal/store"
	"github.com/dpt-pm/dpt/internal/version"
)

// cmdUninstall implements "uninstall <pkg>": remove pkg from the store,
// sweep any dependencies left orphaned by its removal, and rewrite the
// lockfile to match the store's new state. Refuses (via Store.Uninstall)
// if another installed package still depends on pkg.
func cmdUninstall(dptDir string, args []string) (int, error) {
	if len(args) < 1 {
		return 64, fmt.Errorf("uninstall: package name required")
	}
	name, verStr := version.ParsePackageString(args[0])
	if verStr == "" {
		name = args[0]
	}

	lock, err := manifest.Read(config.LockfilePath())
	if err != nil {
		return 69, fmt.Errorf("reading lockfile: %w", err)
	}

	var pkg version.Package
	found := false
	for _, p := range lock.Packages {
		if p.Name == name {
			pkg = version.Package{Name: p.Name, Version: p.Version}
			found = true
			break
		}
	}
	if !found {
		return 64, fmt.Errorf("uninstall: %s is not in the lockfile", name)
	}

	s := store.New(config.StoreDir())
	if err := s.Uninstall(pkg); err != nil {
		return 1, fmt.Errorf("uninstalling %s: %w", pkg, err)
	}

	installed, err := s.InstalledPackages(nil, false)
	if err != nil {
		return 1, fmt.Errorf("reading installed packages after uninstall: %w", err)
	}

	lock.Packages = make([]manifest.RequestedPackage, len(installed))
	for i, rec := range installed {
		lock.Packages[i] = manifest.RequestedPackage{Name: rec.Name, Version: rec.Version}
	}
	if err := manifest.Write(config.LockfilePath(), lock); err != nil {
		return 1, fmt.Errorf("writing lockfile: %w", err)
	}

	log.Info().Str("package", pkg.String()).Msg("uninstalled")
	return 0, nil
}
