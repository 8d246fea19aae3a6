// Package version implements dpt's dotted-integer version model: parsing,
// comparison, and the name-version package identity used throughout the
// store, the repository index, and the solver.
package version

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered sequence of non-negative integers. Comparison is
// component-wise from the most significant component; a shorter sequence
// compares equal to a longer one at every position beyond its own length,
// not zero-padded. "1.2" therefore compares Equal to "1.2.5" (zero-padding
// would make it Less), while "1.2.3" compares Greater than "0.531.0"
// because the first component wins.
type Version []uint64

// Parse parses a dot-joined sequence of non-negative integers. The empty
// string and any non-digit component are rejected.
func Parse(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("parsing version %q: empty string", s)
	}

	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing version %q: component %q is not a non-negative integer", s, p)
		}
		v[i] = n
	}

	return v, nil
}

// MustParse parses v and panics on error. Intended for tests and literal
// constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version as dot-joined decimals.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}

// Bump increments the last component of v, returning a new Version. Bumping
// the empty version yields "1".
func (v Version) Bump() Version {
	if len(v) == 0 {
		return Version{1}
	}
	bumped := make(Version, len(v))
	copy(bumped, v)
	bumped[len(bumped)-1]++
	return bumped
}

// Ordering is the result of Compare.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Compare compares a and b component-wise from the most significant
// position. A sequence that runs out of components is treated as equal at
// every remaining position of the other sequence — it is not zero-padded.
func Compare(a, b Version) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return Less
		case a[i] > b[i]:
			return Greater
		}
	}

	return Equal
}

// GT reports whether a is strictly greater than b.
func (v Version) GT(other Version) bool { return Compare(v, other) == Greater }

// GTE reports whether a is greater than or equal to b.
func (v Version) GTE(other Version) bool {
	c := Compare(v, other)
	return c == Greater || c == Equal
}

// Eq reports whether a and b compare Equal.
func (v Version) Eq(other Version) bool { return Compare(v, other) == Equal }

func (v *Version) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*v = nil
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}
