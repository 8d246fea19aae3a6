package repoindex

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestJoinURL(t *testing.T) {
	cases := []struct {
		base, rel, want string
	}{
		{"https://r/", "/a", "https://r//a"},
		{"https://r", "a", "https://r/a"},
		{"https://r", "https://other/x", "https://other/x"},
	}

	for _, c := range cases {
		if got := JoinURL(c.base, c.rel); got != c.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", c.base, c.rel, got, c.want)
		}
	}
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, base string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f[base])), nil
}

func TestFetchAllConcatenatesInRepoOrder(t *testing.T) {
	f := fakeFetcher{
		"https://a": `
packages:
  - name: gcc
    version: "13.0.0"
    url: gcc-13.0.0.dptpkg
`,
		"https://b": `
packages:
  - name: fish
    version: "4.0.0"
    url: /fish-4.0.0.dptpkg
`,
	}

	records, err := FetchAll(context.Background(), f, []string{"https://a", "https://b"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "gcc" || records[0].URL != "https://a/gcc-13.0.0.dptpkg" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Name != "fish" || records[1].URL != "https://b/fish-4.0.0.dptpkg" {
		t.Errorf("records[1] = %+v", records[1])
	}
}
