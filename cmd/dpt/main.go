// Command dpt is the declarative package manager's CLI entry point:
// subcommand dispatch, privilege checks, and wiring between the internal
// packages.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dpt-pm/dpt/internal/config"
	"github.com/dpt-pm/dpt/internal/sandbox"
)

// Version identifies the version of dpt. Modified by CI during release.
var Version = "dev"

const defaultHelp = `dpt is a declarative package manager for Linux

Usage:

  dpt <command> [options]

The commands are:

  rebuild      resolve the manifest, install the closure, rebuild base
  run          sandbox-run a single installed package
  run-multi    sandbox-run several installed packages together
  dev-env      install and sandbox-run a transient closure from the index
  gen-index    scan the current directory for package archives
  gen-pkg      package a directory into a dpt archive
  info         show install status for a package
  list         enumerate packages available across configured repositories
  uninstall    remove a package and any dependencies it orphans
  version      show dpt's version
`

// log is the process-wide structured logger, constructed once in main and
// threaded through every subcommand.
var log zerolog.Logger

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	code, err := run(os.Args)
	if err != nil {
		log.Error().Err(err).Msg("dpt")
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	switch arg {
	case "", "help", "--help", "-h":
		fmt.Print(defaultHelp)
		return 0, nil
	case "version", "--version":
		fmt.Println(Version)
		return 0, nil
	}

	// Every command but the two that are explicitly safe to run
	// unprivileged requires the binary to be installed setuid-root.
	if arg != "gen-pkg" && arg != "gen-index" && os.Geteuid() != 0 {
		return 64, fmt.Errorf("dpt needs to be installed setuid-root")
	}

	dptDir := config.Dir()

	switch arg {
	case "rebuild":
		return cmdRebuild(dptDir)
	case "run":
		return cmdRun(dptDir, args[2:])
	case "run-multi":
		return cmdRunMulti(dptDir, args[2:])
	case "dev-env":
		return cmdDevEnv(dptDir, args[2:])
	case "gen-index":
		return cmdGenIndex(args[2:])
	case "gen-pkg":
		return cmdGenPkg(args[2:])
	case "info":
		return cmdInfo(dptDir, args[2:])
	case "list":
		return cmdList(dptDir)
	case "uninstall":
		return cmdUninstall(dptDir, args[2:])
	case sandbox.ChrootToken:
		return cmdChrootStage(args[2:])
	default:
		fmt.Fprintf(os.Stderr, "dpt %s: unknown command\n", arg)
		fmt.Print(defaultHelp)
		return 64, nil
	}
}
