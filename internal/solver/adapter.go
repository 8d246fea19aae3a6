// Package solver resolves a selected set of packages against an index into
// a closed, consistent set of records using github.com/contriboss/pubgrub-go,
// a Go implementation of the PubGrub conflict-driven clause-learning
// algorithm.
//
// This file adapts dpt's own version.Version/version.Constraint/
// repoindex.Record types onto pubgrub-go's Version/Condition/Source
// interfaces. dpt never reimplements unit propagation or conflict-driven
// backtracking itself — that is pubgrub-go's job.
package solver

import (
	"fmt"
	"sort"

	"github.com/contriboss/pubgrub-go/pubgrub"

	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/version"
)

// worldName is a synthetic root package so the user's selected set can be
// expressed as a single root's dependencies.
const worldName = "world"

var worldVersion = version.MustParse("1.0.0")

// pgVersion adapts version.Version to pubgrub.Version.
type pgVersion struct{ v version.Version }

func (p pgVersion) String() string { return p.v.String() }

func (p pgVersion) Sort(other pubgrub.Version) int {
	o, ok := other.(pgVersion)
	if !ok {
		return 0
	}
	return int(version.Compare(p.v, o.v))
}

// pgCondition adapts version.Constraint to pubgrub.Condition, and supplies
// ToVersionSet so pubgrub-go's CDCL core can perform algebraic operations
// on it.
type pgCondition struct{ c version.Constraint }

func (p pgCondition) String() string { return p.c.String() }

func (p pgCondition) Satisfies(v pubgrub.Version) bool {
	pv, ok := v.(pgVersion)
	if !ok {
		return false
	}
	return p.c.Satisfies(pv.v)
}

func (p pgCondition) ToVersionSet() pubgrub.VersionSet {
	switch p.c.Kind {
	case version.Unconstrained:
		return pubgrub.NewVersionRangeSet(nil, false, nil, false)
	case version.AtLeast:
		return pubgrub.NewVersionRangeSet(pgVersion{p.c.Bound}, true, nil, false)
	case version.GreaterThan:
		return pubgrub.NewVersionRangeSet(pgVersion{p.c.Bound.Bump()}, true, nil, false)
	case version.Exact:
		return pubgrub.NewVersionRangeSet(pgVersion{p.c.Bound}, true, pgVersion{p.c.Bound}, true)
	default:
		return pubgrub.NewVersionRangeSet(nil, false, nil, false)
	}
}

// indexSource adapts a flat []repoindex.Record into pubgrub.Source,
// additionally serving the synthetic "world" root package.
type indexSource struct {
	records []repoindex.Record
	root    []version.Dependency
}

func (s indexSource) GetVersions(name pubgrub.Name) ([]pubgrub.Version, error) {
	if name.Value() == worldName {
		return []pubgrub.Version{pgVersion{worldVersion}}, nil
	}

	var out []pubgrub.Version
	for _, r := range s.records {
		if r.Name == name.Value() {
			out = append(out, pgVersion{r.Version})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return version.Compare(out[i].(pgVersion).v, out[j].(pgVersion).v) == version.Less
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("no versions available for package %q", name.Value())
	}
	return out, nil
}

func (s indexSource) GetDependencies(name pubgrub.Name, v pubgrub.Version) ([]pubgrub.Term, error) {
	if name.Value() == worldName {
		terms := make([]pubgrub.Term, 0, len(s.root))
		for _, d := range s.root {
			terms = append(terms, pubgrub.Term{
				Package:   pubgrub.NewName(d.Name),
				Condition: pgCondition{d.Constraint},
			})
		}
		return terms, nil
	}

	pv, ok := v.(pgVersion)
	if !ok {
		return nil, fmt.Errorf("unexpected version type for %q", name.Value())
	}
	rec, err := repoindex.ByNameVersion(version.Package{Name: name.Value(), Version: pv.v}, s.records)
	if err != nil {
		return nil, err
	}

	terms := make([]pubgrub.Term, 0, len(rec.Depends))
	for _, d := range rec.Depends {
		terms = append(terms, pubgrub.Term{
			Package:   pubgrub.NewName(d.Name),
			Condition: pgCondition{d.Constraint},
		})
	}
	return terms, nil
}
