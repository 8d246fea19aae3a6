package version

import "testing"

func TestParsePackageString(t *testing.T) {
	cases := []struct {
		input       string
		wantName    string
		wantVersion string
	}{
		{"a-b-c-d-e-1.2.3", "a-b-c-d-e", "1.2.3"},
		{"testing-123-0.4.3", "testing-123", "0.4.3"},
		{"fish", "fish", ""},
	}

	for _, c := range cases {
		name, ver := ParsePackageString(c.input)
		if name != c.wantName || ver != c.wantVersion {
			t.Errorf("ParsePackageString(%q) = (%q, %q), want (%q, %q)", c.input, name, ver, c.wantName, c.wantVersion)
		}
	}
}
