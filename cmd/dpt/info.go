package main

import (
	"fmt"

	"github.com/dpt-pm/dpt/internal/config"
	"github.com/dpt-pm/dpt/internal/store"
	"github.com/dpt-pm/dpt/internal/version"
)

// cmdInfo implements "info <pkg>": report whether pkg is installed,
// manually installed, and how many other installed packages depend on it.
func cmdInfo(dptDir string, args []string) (int, error) {
	if len(args) < 1 {
		return 64, fmt.Errorf("info: package name required")
	}

	name, verStr := version.ParsePackageString(args[0])
	if verStr == "" {
		name = args[0]
	}

	s := store.New(config.StoreDir())
	installed, err := s.InstalledPackages(nil, false)
	if err != nil {
		return 1, fmt.Errorf("reading installed packages: %w", err)
	}

	var found bool
	dependedBy := 0
	for _, rec := range installed {
		if rec.Name == name {
			found = true
			pkg := rec.Package()
			fmt.Printf("%s: manually installed = %v\n", pkg, s.IsManuallyInstalled(pkg))
		}
		for _, dep := range rec.Depends {
			if dep.Name == name {
				dependedBy++
			}
		}
	}

	if !found {
		fmt.Printf("%s: not installed\n", name)
		return 0, nil
	}
	fmt.Printf("%s: depended upon by %d installed package(s)\n", name, dependedBy)
	return 0, nil
}
