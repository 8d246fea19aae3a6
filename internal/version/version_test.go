package version

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"1", "1.2.3", "0.531.0", "531", "1.0.0.0.0.1"}

	for _, s := range cases {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{"", "1.a.3", "1..3", "-1", "1.2.", "v1.2.3"}

	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", s)
		}
	}
}

func TestCompareHighOrderComponentWins(t *testing.T) {
	// A higher-order component always wins even though the tail is much
	// larger.
	a := MustParse("1.2.3")
	b := MustParse("0.531.0")

	if Compare(a, b) != Greater {
		t.Errorf("Compare(1.2.3, 0.531.0) = %v, want Greater", Compare(a, b))
	}
}

func TestCompareShorterSequenceExtendsAsEqual(t *testing.T) {
	a := MustParse("531")
	b := MustParse("531.0.0.0")

	if Compare(a, b) != Equal {
		t.Errorf("Compare(531, 531.0.0.0) = %v, want Equal", Compare(a, b))
	}
	if !a.Eq(b) {
		t.Errorf("531.Eq(531.0.0.0) = false, want true")
	}
}

func TestCompareTransitivityAndAntisymmetry(t *testing.T) {
	vs := []Version{
		MustParse("0.1.0"),
		MustParse("0.531.0"),
		MustParse("1.2.3"),
		MustParse("1.2.3.4"),
		MustParse("2"),
	}

	for i := range vs {
		for j := range vs {
			cij := Compare(vs[i], vs[j])
			cji := Compare(vs[j], vs[i])
			if i == j && cij != Equal {
				t.Errorf("Compare(%v, %v) = %v, want Equal", vs[i], vs[j], cij)
			}
			if (cij == Less && cji != Greater) || (cij == Greater && cji != Less) {
				t.Errorf("antisymmetry violated for %v, %v", vs[i], vs[j])
			}
		}
	}

	for i := range vs {
		for j := range vs {
			for k := range vs {
				if Compare(vs[i], vs[j]) == Less && Compare(vs[j], vs[k]) == Less {
					if Compare(vs[i], vs[k]) != Less {
						t.Errorf("transitivity violated for %v < %v < %v", vs[i], vs[j], vs[k])
					}
				}
			}
		}
	}
}

func TestBump(t *testing.T) {
	if got := MustParse("1.2.3").Bump().String(); got != "1.2.4" {
		t.Errorf("Bump(1.2.3) = %q, want 1.2.4", got)
	}
}
