package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dpt-pm/dpt/internal/archive"
	"github.com/dpt-pm/dpt/internal/pkgmeta"
)

// cmdGenPkg implements "gen-pkg <dir>": verify a directory's embedded
// metadata fragment, then package the directory into a dpt archive.
// Runnable without root.
func cmdGenPkg(args []string) (int, error) {
	if len(args) < 1 {
		return 64, fmt.Errorf("gen-pkg: directory required")
	}
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return 1, fmt.Errorf("gen-pkg: %s is not a directory", dir)
	}

	meta, err := pkgmeta.Read(dir)
	if err != nil {
		return 1, fmt.Errorf("gen-pkg: reading package metadata: %w", err)
	}
	if meta.Name == "" || len(meta.Version) == 0 {
		return 1, fmt.Errorf("gen-pkg: package metadata must declare a name and version")
	}

	out := strings.TrimSuffix(dir, "/") + archiveSuffix
	f, err := os.Create(out)
	if err != nil {
		return 1, fmt.Errorf("gen-pkg: creating %s: %w", out, err)
	}
	defer f.Close()

	if err := archive.Pack(dir, f); err != nil {
		return 1, fmt.Errorf("gen-pkg: packing %s: %w", dir, err)
	}

	log.Info().Str("package", meta.Name+"-"+meta.Version.String()).Str("out", out).Msg("packaged")
	return 0, nil
}
