package solver

import (
	"errors"
	"fmt"

	"github.com/contriboss/pubgrub-go/pubgrub"

	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/version"
)

// SolveError wraps a PubGrub NoSolution failure into a human-readable
// explanation: the derivation tree collapsed into one fatal error.
type SolveError struct {
	Explanation string
	cause       error
}

func (e *SolveError) Error() string { return e.Explanation }
func (e *SolveError) Unwrap() error { return e.cause }

// Selected is a manifest-style request: a name with an optional exact
// version. A nil/empty Version means "newest available".
type Selected struct {
	Name    string
	Version version.Version
}

// Resolve computes the transitive closure of selected against records
// using a PubGrub solve rooted at a synthetic "world" package. The
// returned records never repeat a name and every dependency of every
// returned record is itself present.
func Resolve(selected []Selected, records []repoindex.Record) ([]repoindex.Record, error) {
	root := make([]version.Dependency, 0, len(selected))
	for _, s := range selected {
		constraint := version.Constraint{Kind: version.Unconstrained}
		if len(s.Version) > 0 {
			constraint = version.Constraint{Kind: version.Exact, Bound: s.Version}
		}
		root = append(root, version.Dependency{Name: s.Name, Constraint: constraint})
	}

	src := indexSource{records: records, root: root}

	assignment, err := pubgrub.Solve(src, pubgrub.NewName(worldName), pgVersion{worldVersion})
	if err != nil {
		var noSolution *pubgrub.NoSolutionError
		if errors.As(err, &noSolution) {
			return nil, &SolveError{
				Explanation: noSolution.Explain(),
				cause:       err,
			}
		}
		return nil, fmt.Errorf("solving dependencies: %w", err)
	}

	out := make([]repoindex.Record, 0, len(assignment))
	for name, v := range assignment {
		if name.Value() == worldName {
			continue
		}
		pv, ok := v.(pgVersion)
		if !ok {
			return nil, fmt.Errorf("solver returned unexpected version type for %q", name.Value())
		}
		rec, err := repoindex.ByNameVersion(version.Package{Name: name.Value(), Version: pv.v}, records)
		if err != nil {
			return nil, fmt.Errorf("solver selected package missing from index (index corruption?): %w", err)
		}
		out = append(out, rec)
	}

	return out, nil
}
