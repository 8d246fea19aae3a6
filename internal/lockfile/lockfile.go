// Package lockfile reads and writes dpt.lock, which shares the Manifest
// shape but holds the solver's fully resolved closed set of packages in
// solver order rather than the user's requested set.
package lockfile

import (
	"github.com/dpt-pm/dpt/internal/manifest"
)

// Lockfile is a manifest.Manifest whose Packages field holds the solver's
// closed set instead of the user's requested set.
type Lockfile = manifest.Manifest

// Read decodes the lockfile at path.
func Read(path string) (*Lockfile, error) {
	return manifest.Read(path)
}

// Write encodes the lockfile to path.
func Write(path string, l *Lockfile) error {
	return manifest.Write(path, l)
}
