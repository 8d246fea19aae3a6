package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/dpt-pm/dpt/internal/config"
	"github.com/dpt-pm/dpt/internal/fetch"
	"github.com/dpt-pm/dpt/internal/manifest"
	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/sandbox"
	"github.com/dpt-pm/dpt/internal/solver"
	"github.com/dpt-pm/dpt/internal/store"
	"github.com/dpt-pm/dpt/internal/version"
)

// cmdRun implements "run <pkg> [--] [args...]": sandbox-run a single
// already-installed package.
func cmdRun(dptDir string, args []string) (int, error) {
	if len(args) < 1 {
		return 64, fmt.Errorf("run: package name required")
	}
	pkgArg, childArgs := args[0], args[1:]
	if len(childArgs) > 0 && childArgs[0] == "--" {
		childArgs = childArgs[1:]
	}

	s := store.New(config.StoreDir())
	lock, err := manifest.Read(config.LockfilePath())
	if err != nil {
		return 69, fmt.Errorf("reading lockfile: %w", err)
	}

	installed, err := s.InstalledPackages(lockedPackages(lock), true)
	if err != nil {
		return 69, fmt.Errorf("checking installed packages: %w", err)
	}

	name, verStr := version.ParsePackageString(pkgArg)
	var selected solver.Selected
	if verStr != "" {
		selected = solver.Selected{Name: name, Version: version.MustParse(verStr)}
	} else {
		selected = solver.Selected{Name: pkgArg}
	}

	closure, err := solver.Resolve([]solver.Selected{selected}, installed)
	if err != nil {
		return 69, fmt.Errorf("resolving %s against installed packages: %w", pkgArg, err)
	}

	return runClosure(dptDir, closure, selected.Name, childArgs, true, os.Getuid())
}

// cmdRunMulti implements "run-multi <pkg...> [--cmd C] [-- args...]".
func cmdRunMulti(dptDir string, args []string) (int, error) {
	before, after := splitOnDoubleDash(args)

	flagSet := pflag.NewFlagSet("run-multi", pflag.ContinueOnError)
	cmdName := flagSet.String("cmd", "", "command to execute (default: first package's name)")
	if err := flagSet.Parse(before); err != nil {
		return 64, err
	}

	positional := flagSet.Args()
	if len(positional) < 1 {
		return 64, fmt.Errorf("run-multi: at least one package required")
	}

	s := store.New(config.StoreDir())
	lock, err := manifest.Read(config.LockfilePath())
	if err != nil {
		return 69, fmt.Errorf("reading lockfile: %w", err)
	}
	installed, err := s.InstalledPackages(lockedPackages(lock), true)
	if err != nil {
		return 69, fmt.Errorf("checking installed packages: %w", err)
	}

	selected := make([]solver.Selected, len(positional))
	for i, pkgArg := range positional {
		name, verStr := version.ParsePackageString(pkgArg)
		if verStr != "" {
			selected[i] = solver.Selected{Name: name, Version: version.MustParse(verStr)}
		} else {
			selected[i] = solver.Selected{Name: pkgArg}
		}
	}

	closure, err := solver.Resolve(selected, installed)
	if err != nil {
		return 69, fmt.Errorf("resolving requested packages against installed packages: %w", err)
	}

	command := *cmdName
	if command == "" {
		command = selected[0].Name
	}

	return runClosure(dptDir, closure, command, after, false, os.Getuid())
}

// splitOnDoubleDash splits args into the portion before a literal "--" and
// the portion after it. If no "--" is present, everything is "before" and
// "after" is empty.
func splitOnDoubleDash(args []string) (before, after []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}

// cmdDevEnv implements "dev-env <pkg...>": install then sandbox-run a
// transient closure pulled straight from the repository index, without
// touching the lockfile.
func cmdDevEnv(dptDir string, args []string) (int, error) {
	if len(args) < 1 {
		return 64, fmt.Errorf("dev-env: at least one package required")
	}

	records, err := fetchIndex()
	if err != nil {
		return 69, fmt.Errorf("fetching repository index: %w", err)
	}

	selected := make([]solver.Selected, len(args))
	for i, pkgArg := range args {
		name, verStr := version.ParsePackageString(pkgArg)
		if verStr != "" {
			selected[i] = solver.Selected{Name: name, Version: version.MustParse(verStr)}
		} else {
			selected[i] = solver.Selected{Name: pkgArg}
		}
	}

	s := store.New(config.StoreDir())
	closure, err := s.InstallClosure(context.Background(), selected, records, &fetch.HTTPFetcher{}, false)
	if err != nil {
		return 69, fmt.Errorf("installing transient closure: %w", err)
	}

	return runClosure(dptDir, closure, selected[0].Name, nil, true, os.Getuid())
}

// runClosure bind-mounts and chroots into closure, executing command as
// uid (the invoking user's real uid, captured before the setuid-root
// privilege is used for anything else, so the sandboxed child never runs
// as root unless the invoking user actually is root).
func runClosure(dptDir string, closure []repoindex.Record, command string, args []string, replace bool, uid int) (int, error) {
	baseDir := config.BaseDir()
	code, err := sandbox.Run(context.Background(), sandbox.RunOptions{
		Records:        closure,
		BaseDir:        baseDir,
		StoreDir:       config.StoreDir(),
		ScratchRoot:    config.RunDir(),
		Command:        command,
		Args:           args,
		UID:            uid,
		ReplaceProcess: replace,
	})
	if err != nil {
		return 1, fmt.Errorf("running %s: %w", command, err)
	}
	return code, nil
}

func lockedPackages(lock *manifest.Manifest) []version.Package {
	out := make([]version.Package, len(lock.Packages))
	for i, p := range lock.Packages {
		out[i] = version.Package{Name: p.Name, Version: p.Version}
	}
	return out
}
