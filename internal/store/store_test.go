package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/version"
)

// fakeFetcher serves a fixed zstd-compressed empty tar archive for every
// URL, so Install exercises the full extract-then-stamp path without a
// network.
type fakeFetcher struct {
	calls int
}

func (f *fakeFetcher) FetchArchive(ctx context.Context, url string) (io.ReadCloser, error) {
	f.calls++
	return io.NopCloser(bytes.NewReader(emptyZstdTar(nil))), nil
}

func emptyZstdTar(t *testing.T) []byte {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		if t != nil {
			t.Fatalf("building zstd writer: %v", err)
		}
		panic(err)
	}
	// An empty tar body is a valid, if trivial, tar stream: the reader
	// simply reaches EOF on its first Next() call.
	if _, err := zw.Write(nil); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestInstallIsIdempotentWithoutReinstall(t *testing.T) {
	s := New(t.TempDir())
	fetcher := &fakeFetcher{}
	rec := repoindex.Record{Name: "a", Version: version.MustParse("1.0.0")}

	outcome, err := s.Install(context.Background(), rec, fetcher, false)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if outcome != Installed {
		t.Fatalf("outcome = %v, want Installed", outcome)
	}

	outcome, err = s.Install(context.Background(), rec, fetcher, false)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if outcome != Ignored {
		t.Fatalf("outcome = %v, want Ignored", outcome)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestInstallReinstallRefetches(t *testing.T) {
	s := New(t.TempDir())
	fetcher := &fakeFetcher{}
	rec := repoindex.Record{Name: "a", Version: version.MustParse("1.0.0")}

	if _, err := s.Install(context.Background(), rec, fetcher, false); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := s.Install(context.Background(), rec, fetcher, true); err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetcher called %d times, want 2", fetcher.calls)
	}
}

func TestUninstallRefusesWhenDependedUpon(t *testing.T) {
	s := New(t.TempDir())
	fetcher := &fakeFetcher{}
	base := repoindex.Record{Name: "base", Version: version.MustParse("1.0.0")}
	dependent := repoindex.Record{
		Name:    "dependent",
		Version: version.MustParse("1.0.0"),
		Depends: []version.Dependency{
			{Name: "base", Constraint: version.Constraint{Kind: version.Unconstrained}},
		},
	}

	for _, rec := range []repoindex.Record{base, dependent} {
		if _, err := s.Install(context.Background(), rec, fetcher, false); err != nil {
			t.Fatalf("Install %s: %v", rec.Name, err)
		}
	}

	if err := s.Uninstall(base.Package()); err == nil {
		t.Fatal("Uninstall: expected error, got nil")
	}
}

func TestUninstallSweepsOrphanedDependency(t *testing.T) {
	s := New(t.TempDir())
	fetcher := &fakeFetcher{}
	base := repoindex.Record{Name: "base", Version: version.MustParse("1.0.0")}
	dependent := repoindex.Record{
		Name:    "dependent",
		Version: version.MustParse("1.0.0"),
		Depends: []version.Dependency{
			{Name: "base", Constraint: version.Constraint{Kind: version.Unconstrained}},
		},
	}

	for _, rec := range []repoindex.Record{base, dependent} {
		if _, err := s.Install(context.Background(), rec, fetcher, false); err != nil {
			t.Fatalf("Install %s: %v", rec.Name, err)
		}
	}
	if err := s.MarkManuallyInstalled(dependent.Package()); err != nil {
		t.Fatalf("MarkManuallyInstalled: %v", err)
	}

	if err := s.Uninstall(dependent.Package()); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	records, err := s.InstalledPackages(nil, false)
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty: base should have been swept as an orphan", records)
	}
}

func TestUninstallKeepsManuallyInstalledOrphan(t *testing.T) {
	s := New(t.TempDir())
	fetcher := &fakeFetcher{}
	base := repoindex.Record{Name: "base", Version: version.MustParse("1.0.0")}
	dependent := repoindex.Record{
		Name:    "dependent",
		Version: version.MustParse("1.0.0"),
		Depends: []version.Dependency{
			{Name: "base", Constraint: version.Constraint{Kind: version.Unconstrained}},
		},
	}

	for _, rec := range []repoindex.Record{base, dependent} {
		if _, err := s.Install(context.Background(), rec, fetcher, false); err != nil {
			t.Fatalf("Install %s: %v", rec.Name, err)
		}
	}
	if err := s.MarkManuallyInstalled(base.Package()); err != nil {
		t.Fatalf("MarkManuallyInstalled: %v", err)
	}
	if err := s.MarkManuallyInstalled(dependent.Package()); err != nil {
		t.Fatalf("MarkManuallyInstalled: %v", err)
	}

	if err := s.Uninstall(dependent.Package()); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	records, err := s.InstalledPackages(nil, false)
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(records) != 1 || records[0].Name != "base" {
		t.Fatalf("records = %+v, want only base (manually installed, not an orphan)", records)
	}
}
