package repoindex

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fetcher retrieves the raw bytes of an index document from a repository
// base URL. dpt's production Fetcher performs an HTTP GET of
// "<base>/index.yaml", kept outside this package so tests can substitute
// an in-memory one.
type Fetcher interface {
	Fetch(ctx context.Context, base string) (io.ReadCloser, error)
}

// JoinURL appends rel to base: a '/' is inserted only if neither side
// already has one, so two trailing/leading slashes both present yields
// the doubled slash verbatim.
func JoinURL(base, rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}

	baseHasSlash := strings.HasSuffix(base, "/")
	relHasSlash := strings.HasPrefix(rel, "/")
	switch {
	case baseHasSlash || relHasSlash:
		return base + rel
	default:
		return base + "/" + rel
	}
}

// FetchAll fetches "<base>/index.yaml" from every base in order, decodes
// each via yaml, rewrites relative record URLs against that base, and
// concatenates all records in repository order. A later repository never
// shadows an earlier one for resolution (which is keyed on exact
// (name, version)), but enumeration order does determine which record
// NewestByName/ByNameVersion returns among duplicates.
func FetchAll(ctx context.Context, f Fetcher, bases []string) ([]Record, error) {
	var all []Record

	for _, base := range bases {
		rc, err := f.Fetch(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("fetching index from %s: %w", base, err)
		}

		var doc struct {
			Packages []Record `yaml:"packages"`
		}
		decErr := yaml.NewDecoder(rc).Decode(&doc)
		closeErr := rc.Close()
		if decErr != nil && decErr != io.EOF {
			return nil, fmt.Errorf("decoding index from %s: %w", base, decErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("fetching index from %s: %w", base, closeErr)
		}

		for _, rec := range doc.Packages {
			rec.URL = JoinURL(base, rec.URL)
			all = append(all, rec)
		}
	}

	return all, nil
}
