// Package env builds the flat environment a sandbox runs against: the
// union of a set of store package trees plus the base skeleton, joined by
// hard links. Hard links, not symlinks, are required here: the sandbox
// later bind-mounts this tree inside a chroot, where a symlink pointing
// back out at the store would dangle.
package env

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dpt-pm/dpt/internal/pkgmeta"
	"github.com/dpt-pm/dpt/internal/repoindex"
)

// Build erases and recreates outDir as the union of baseDir (if non-empty
// and present) followed by every record's store tree in records, in
// order. The first tree to place a given path wins; later trees that
// collide with an already-placed regular file or symlink are skipped.
// Directories merge rather than collide. Finally, each record's glue
// declarations run over the completed tree.
func Build(records []repoindex.Record, storeDir, baseDir, outDir string) error {
	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("clearing environment directory %s: %w", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return fmt.Errorf("creating environment directory %s: %w", outDir, err)
	}

	placed := map[string]bool{}

	if baseDir != "" {
		if _, err := os.Stat(baseDir); err == nil {
			if err := unionTree(baseDir, outDir, placed); err != nil {
				return fmt.Errorf("layering base: %w", err)
			}
		}
	}

	for _, rec := range records {
		pkgDir := filepath.Join(storeDir, rec.Package().String())
		if err := unionTree(pkgDir, outDir, placed); err != nil {
			return fmt.Errorf("layering %s: %w", rec.Package(), err)
		}
	}

	for _, rec := range records {
		pkgDir := filepath.Join(storeDir, rec.Package().String())
		meta, err := pkgmeta.Read(pkgDir)
		if err != nil {
			// A store entry without its own metadata fragment has no glue
			// to run; this is not an error.
			continue
		}
		if err := runGlue(pkgDir, outDir, meta.Glue, placed); err != nil {
			return fmt.Errorf("running glue for %s: %w", rec.Package(), err)
		}
	}

	return nil
}

// unionTree walks srcDir and places every entry under destDir, recording
// each placed relative path in placed so later calls can detect and skip
// collisions. Entries under pkgmeta.MetaDirName are never unioned.
func unionTree(srcDir, destDir string, placed map[string]bool) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if rel == pkgmeta.MetaDirName || strings.HasPrefix(rel, pkgmeta.MetaDirName+string(filepath.Separator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(destDir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0777)
		}

		if placed[rel] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(linkTarget, target); err != nil {
				return err
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
				return err
			}
			if err := os.Link(path, target); err != nil {
				return err
			}
		}

		placed[rel] = true
		return nil
	})
}

// runGlue executes each glue declaration against pkgDir, placing matches
// into outDir. GlueBin is a deliberate no-op; GlueGlob hard-links every
// match of each pattern, evaluated relative to pkgDir. placed is the same
// map unionTree populates: a path already placed by a higher-priority
// package is skipped here too, so glue can never clobber it.
func runGlue(pkgDir, outDir string, glue []pkgmeta.Glue, placed map[string]bool) error {
	for _, g := range glue {
		switch g.Kind {
		case pkgmeta.GlueBin:
			continue
		case pkgmeta.GlueGlob:
			for _, pattern := range g.Patterns {
				matches, err := filepath.Glob(filepath.Join(pkgDir, pattern))
				if err != nil {
					return fmt.Errorf("evaluating glob pattern %q: %w", pattern, err)
				}
				for _, match := range matches {
					rel, err := filepath.Rel(pkgDir, match)
					if err != nil {
						return err
					}
					if placed[rel] {
						continue
					}
					target := filepath.Join(outDir, rel)
					if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
						return err
					}
					if err := os.Link(match, target); err != nil {
						return err
					}
					placed[rel] = true
				}
			}
		}
	}
	return nil
}
