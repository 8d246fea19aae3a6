package repoindex

import (
	"testing"

	"github.com/blang/semver/v4"

	"github.com/dpt-pm/dpt/internal/version"
)

func TestNewestByNameTieBreak(t *testing.T) {
	records := []Record{
		{Name: "fish", Version: version.MustParse("3.5.0")},
		{Name: "fish", Version: version.MustParse("4.0.0")},
		{Name: "gcc", Version: version.MustParse("13.0.0")},
		{Name: "fish", Version: version.MustParse("4.0.0"), URL: "second-repo"},
	}

	best, err := NewestByName("fish", records)
	if err != nil {
		t.Fatalf("NewestByName: %v", err)
	}
	if !best.Version.Eq(version.MustParse("4.0.0")) || best.URL != "" {
		t.Errorf("NewestByName(fish) = %+v, want the first-enumerated 4.0.0 record", best)
	}
}

// TestNewestByNameAgreesWithSemverForThreeComponentVersions cross-checks
// NewestByName's winner against github.com/blang/semver/v4 as an
// independent oracle. This only holds for well-formed three-component
// versions, where dpt's "shorter sequence compares equal" rule never
// comes into play and the two orderings necessarily agree.
func TestNewestByNameAgreesWithSemverForThreeComponentVersions(t *testing.T) {
	raw := []string{"1.2.3", "1.10.0", "2.0.0", "1.2.10"}

	records := make([]Record, len(raw))
	for i, s := range raw {
		records[i] = Record{Name: "pkg", Version: version.MustParse(s)}
	}

	want := raw[0]
	wantSemver := semver.MustParse(want)
	for _, s := range raw[1:] {
		if semver.MustParse(s).GT(wantSemver) {
			want, wantSemver = s, semver.MustParse(s)
		}
	}

	got, err := NewestByName("pkg", records)
	if err != nil {
		t.Fatalf("NewestByName: %v", err)
	}
	if got.Version.String() != want {
		t.Errorf("NewestByName = %s, want %s (per blang/semver ordering)", got.Version, want)
	}
}

func TestByNameVersion(t *testing.T) {
	records := []Record{
		{Name: "fish", Version: version.MustParse("3.5.0")},
		{Name: "fish", Version: version.MustParse("4.0.0")},
	}

	got, err := ByNameVersion(version.Package{Name: "fish", Version: version.MustParse("3.5.0")}, records)
	if err != nil {
		t.Fatalf("ByNameVersion: %v", err)
	}
	if !got.Version.Eq(version.MustParse("3.5.0")) {
		t.Errorf("ByNameVersion = %+v", got)
	}
}
