// Package pkgmeta defines the package-local metadata fragment every store
// entry and archive carries at "<meta>/pkg.yaml": the package's own
// declared name/version/dependencies plus its glue declarations, read by
// the store, the environment builder, and gen-pkg.
package pkgmeta

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dpt-pm/dpt/internal/version"
)

// MetaDirName is the reserved directory name inside a package tree/store
// entry. Entries under this prefix are never unioned into an environment
// or exposed inside a sandbox.
const MetaDirName = ".dpt"

// SentinelName is the empty file whose presence inside a store entry's
// meta directory certifies that unpacking completed successfully.
const SentinelName = ".done"

// ManualMarkerName marks a store entry as having been explicitly
// requested by the user, rather than pulled in only as a dependency.
const ManualMarkerName = "manually_installed"

// GlueKind identifies a post-union pass declared by a package.
type GlueKind string

const (
	// GlueBin is a deliberate no-op: multi-call dispatch is treated as a
	// host-dispatcher concern outside this core.
	GlueBin GlueKind = "bin"
	// GlueGlob expands Patterns against the package's own tree and
	// hard-links matches into the environment after the main union pass.
	GlueGlob GlueKind = "glob"
)

// Glue is one post-union declaration.
type Glue struct {
	Kind     GlueKind `yaml:"kind"`
	Patterns []string `yaml:"patterns,omitempty"`
}

// Meta is the package-local fragment embedded at "<meta>/pkg.yaml".
type Meta struct {
	Name    string               `yaml:"name"`
	Version version.Version      `yaml:"version"`
	Depends []version.Dependency `yaml:"depends"`
	Glue    []Glue               `yaml:"glue,omitempty"`
}

// Path returns "<pkgDir>/.dpt/pkg.yaml".
func Path(pkgDir string) string {
	return filepath.Join(pkgDir, MetaDirName, "pkg.yaml")
}

// Read decodes the meta fragment of the package tree rooted at pkgDir.
func Read(pkgDir string) (*Meta, error) {
	b, err := os.ReadFile(Path(pkgDir))
	if err != nil {
		return nil, fmt.Errorf("reading package metadata in %s: %w", pkgDir, err)
	}

	var m Meta
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding package metadata in %s: %w", pkgDir, err)
	}
	return &m, nil
}

// Write encodes m to "<pkgDir>/.dpt/pkg.yaml", creating the meta directory
// if needed.
func Write(pkgDir string, m *Meta) error {
	dir := filepath.Join(pkgDir, MetaDirName)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return fmt.Errorf("creating metadata directory in %s: %w", pkgDir, err)
	}

	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding package metadata: %w", err)
	}
	return os.WriteFile(Path(pkgDir), b, 0666)
}
