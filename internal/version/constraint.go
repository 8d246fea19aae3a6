package version

import (
	"fmt"
	"strings"
)

// ConstraintKind identifies the shape of a Constraint.
type ConstraintKind int

const (
	// Unconstrained matches every version.
	Unconstrained ConstraintKind = iota
	// AtLeast matches v >= Bound.
	AtLeast
	// GreaterThan matches v > Bound.
	GreaterThan
	// Exact matches v == Bound.
	Exact
)

// Constraint restricts which versions of a dependency are acceptable.
type Constraint struct {
	Kind  ConstraintKind
	Bound Version
}

// Satisfies reports whether v meets the constraint.
func (c Constraint) Satisfies(v Version) bool {
	switch c.Kind {
	case Unconstrained:
		return true
	case AtLeast:
		return v.GTE(c.Bound)
	case GreaterThan:
		return v.GT(c.Bound)
	case Exact:
		return v.Eq(c.Bound)
	default:
		return false
	}
}

func (c Constraint) String() string {
	switch c.Kind {
	case Unconstrained:
		return "*"
	case AtLeast:
		return ">=" + c.Bound.String()
	case GreaterThan:
		return ">" + c.Bound.String()
	case Exact:
		return c.Bound.String()
	default:
		return fmt.Sprintf("<invalid constraint kind %d>", c.Kind)
	}
}

// ParseConstraint parses the textual constraint forms used by the
// repository index and the manifest: "" (unconstrained), ">=V", ">V", or a
// bare "V" (exact).
func ParseConstraint(s string) (Constraint, error) {
	switch {
	case s == "":
		return Constraint{Kind: Unconstrained}, nil
	case strings.HasPrefix(s, ">="):
		v, err := Parse(strings.TrimPrefix(s, ">="))
		if err != nil {
			return Constraint{}, fmt.Errorf("parsing constraint %q: %w", s, err)
		}
		return Constraint{Kind: AtLeast, Bound: v}, nil
	case strings.HasPrefix(s, ">"):
		v, err := Parse(strings.TrimPrefix(s, ">"))
		if err != nil {
			return Constraint{}, fmt.Errorf("parsing constraint %q: %w", s, err)
		}
		return Constraint{Kind: GreaterThan, Bound: v}, nil
	default:
		v, err := Parse(s)
		if err != nil {
			return Constraint{}, fmt.Errorf("parsing constraint %q: %w", s, err)
		}
		return Constraint{Kind: Exact, Bound: v}, nil
	}
}

func (c Constraint) MarshalYAML() (interface{}, error) {
	if c.Kind == Unconstrained {
		return "", nil
	}
	return c.String(), nil
}

func (c *Constraint) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseConstraint(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Dependency is a (name, constraint) pair as it appears in a package
// record's dependency list.
type Dependency struct {
	Name       string     `yaml:"name"`
	Constraint Constraint `yaml:"version"`
}
