// Package repoindex models the online repository index: package records
// fetched from one or more repositories, with relative URLs resolved
// against each repository's base URL.
package repoindex

import "github.com/dpt-pm/dpt/internal/version"

// Record is a single package record as published by a repository.
type Record struct {
	Name    string               `yaml:"name"`
	Version version.Version      `yaml:"version"`
	URL     string               `yaml:"url"`
	Depends []version.Dependency `yaml:"depends"`
}

// Package returns the (name, version) identity of the record.
func (r Record) Package() version.Package {
	return version.Package{Name: r.Name, Version: r.Version}
}
