package repoindex

import (
	"fmt"

	"github.com/dpt-pm/dpt/internal/version"
)

// NewestByName returns the record with the strictly greatest version among
// all records matching name. Ties (same version, multiple repositories)
// are broken by enumeration order: the first-listed record wins.
func NewestByName(name string, records []Record) (Record, error) {
	var best Record
	found := false

	for _, r := range records {
		if r.Name != name {
			continue
		}
		if !found || r.Version.GT(best.Version) {
			best = r
			found = true
		}
	}

	if !found {
		return Record{}, fmt.Errorf("no package named %q in index", name)
	}
	return best, nil
}

// ByNameVersion finds the record matching both name and version exactly.
func ByNameVersion(pkg version.Package, records []Record) (Record, error) {
	for _, r := range records {
		if r.Name == pkg.Name && r.Version.Eq(pkg.Version) {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("package %s not found in index", pkg)
}
