package version

import "strings"

// Package is a resolved (name, version) identity. Equality is structural.
type Package struct {
	Name    string
	Version Version
}

func (p Package) String() string {
	return p.Name + "-" + p.Version.String()
}

// Equal reports whether p and other identify the same package.
func (p Package) Equal(other Package) bool {
	return p.Name == other.Name && p.Version.Eq(other.Version)
}

// ParsePackageString splits "<name>-<version>": the last '-'-delimited
// segment is tried as a version; if it
// parses, the remaining prefix (rejoined with '-') is the name. Otherwise
// the whole input is the name and the version is empty. This is
// deliberately ambiguous for names that themselves end in a dotted-integer
// segment — the solver only ever consults (name, version) pairs drawn
// directly from the index, so the ambiguity never needs to round-trip.
func ParsePackageString(s string) (name string, ver string) {
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return s, ""
	}

	candidate := s[idx+1:]
	if _, err := Parse(candidate); err != nil {
		return s, ""
	}

	return s[:idx], candidate
}
