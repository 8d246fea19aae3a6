// Package manifest decodes dpt's declarative manifest and lockfile. The
// text format itself is treated as an opaque serializer of this data
// model; dpt decodes it through gopkg.in/yaml.v3 rather than a
// hand-rolled parser.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dpt-pm/dpt/internal/version"
)

// RequestedPackage is a manifest entry: a name with an optional exact
// version. An empty Version means "newest available".
type RequestedPackage struct {
	Name    string          `yaml:"name"`
	Version version.Version `yaml:"version"`
}

// User is one manifest-declared account.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UID      uint64 `yaml:"uid"`
	GID      uint64 `yaml:"gid"`
	Gecos    string `yaml:"gecos"`
	Home     string `yaml:"home"`
	Shell    string `yaml:"shell"`
}

// Group is one manifest-declared group.
type Group struct {
	Groupname string   `yaml:"groupname"`
	GID       uint64   `yaml:"gid"`
	Members   []string `yaml:"members"`
}

// Manifest is the user-authored input (and, with Packages replaced by the
// solver's closed set, the lockfile — both share this same shape).
type Manifest struct {
	Packages []RequestedPackage  `yaml:"packages"`
	Users    []User              `yaml:"users"`
	Groups   []Group             `yaml:"groups"`
	Services map[string][]string `yaml:"services,omitempty"`
}

// Read decodes the manifest or lockfile at path.
func Read(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return &m, nil
}

// Write encodes the manifest or lockfile to path.
func Write(path string, m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, b, 0666); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}
