package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dpt-pm/dpt/internal/archive"
	"github.com/dpt-pm/dpt/internal/pkgmeta"
	"github.com/dpt-pm/dpt/internal/repoindex"
)

// archiveSuffix names the files gen-pkg produces and gen-index scans for.
const archiveSuffix = ".dptpkg"

// cmdGenIndex implements "gen-index": scan the current directory
// recursively for package archives and emit "index.yaml" describing them,
// with path-relative URLs.
func cmdGenIndex(args []string) (int, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return 1, fmt.Errorf("getting working directory: %w", err)
	}

	var records []repoindex.Record
	err = filepath.WalkDir(cwd, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, archiveSuffix) {
			return nil
		}

		rec, err := describeArchive(path, cwd)
		if err != nil {
			return fmt.Errorf("reading archive %s: %w", path, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return 1, err
	}

	doc := struct {
		Packages []repoindex.Record `yaml:"packages"`
	}{Packages: records}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return 1, fmt.Errorf("encoding index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cwd, "index.yaml"), b, 0644); err != nil {
		return 1, fmt.Errorf("writing index.yaml: %w", err)
	}

	log.Info().Int("packages", len(records)).Msg("wrote index.yaml")
	return 0, nil
}

// describeArchive extracts just enough of archivePath to read its embedded
// metadata fragment, then reports it as a repository record whose URL is
// relative to root.
func describeArchive(archivePath, root string) (repoindex.Record, error) {
	tmp, err := os.MkdirTemp("", "dpt-gen-index-")
	if err != nil {
		return repoindex.Record{}, err
	}
	defer os.RemoveAll(tmp)

	f, err := os.Open(archivePath)
	if err != nil {
		return repoindex.Record{}, err
	}
	defer f.Close()

	if err := archive.Extract(f, tmp); err != nil {
		return repoindex.Record{}, err
	}

	meta, err := pkgmeta.Read(tmp)
	if err != nil {
		return repoindex.Record{}, err
	}

	rel, err := filepath.Rel(root, archivePath)
	if err != nil {
		return repoindex.Record{}, err
	}

	return repoindex.Record{
		Name:    meta.Name,
		Version: meta.Version,
		URL:     rel,
		Depends: meta.Depends,
	}, nil
}
