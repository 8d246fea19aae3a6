package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dpt-pm/dpt/internal/pkgmeta"
	"github.com/dpt-pm/dpt/internal/repoindex"
	"github.com/dpt-pm/dpt/internal/version"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
}

func TestBuildFirstWinsOnCollision(t *testing.T) {
	storeDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "env")

	first := repoindex.Record{Name: "first", Version: version.MustParse("1.0.0")}
	second := repoindex.Record{Name: "second", Version: version.MustParse("1.0.0")}

	writeFile(t, filepath.Join(storeDir, first.Package().String(), "bin/tool"), "first")
	writeFile(t, filepath.Join(storeDir, second.Package().String(), "bin/tool"), "second")

	if err := Build([]repoindex.Record{first, second}, storeDir, "", outDir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "bin/tool"))
	if err != nil {
		t.Fatalf("reading unioned file: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("bin/tool = %q, want %q (first tree should win)", got, "first")
	}
}

func TestBuildSkipsMetaDirectory(t *testing.T) {
	storeDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "env")

	pkg := repoindex.Record{Name: "a", Version: version.MustParse("1.0.0")}
	writeFile(t, filepath.Join(storeDir, pkg.Package().String(), "bin/tool"), "payload")
	writeFile(t, filepath.Join(storeDir, pkg.Package().String(), ".dpt/pkg.yaml"), "name: a\n")

	if err := Build([]repoindex.Record{pkg}, storeDir, "", outDir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, ".dpt")); !os.IsNotExist(err) {
		t.Fatalf(".dpt directory leaked into environment: err = %v", err)
	}
}

func TestBuildGlueDoesNotClobberHigherPriorityFile(t *testing.T) {
	storeDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "env")

	first := repoindex.Record{Name: "first", Version: version.MustParse("1.0.0")}
	second := repoindex.Record{Name: "second", Version: version.MustParse("1.0.0")}

	writeFile(t, filepath.Join(storeDir, first.Package().String(), "bin/special"), "first")
	writeFile(t, filepath.Join(storeDir, second.Package().String(), "bin/special"), "second")

	secondDir := filepath.Join(storeDir, second.Package().String())
	meta := &pkgmeta.Meta{
		Name:    second.Name,
		Version: second.Version,
		Glue: []pkgmeta.Glue{
			{Kind: pkgmeta.GlueGlob, Patterns: []string{"bin/special"}},
		},
	}
	if err := pkgmeta.Write(secondDir, meta); err != nil {
		t.Fatalf("writing package metadata: %v", err)
	}

	if err := Build([]repoindex.Record{first, second}, storeDir, "", outDir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "bin/special"))
	if err != nil {
		t.Fatalf("reading unioned file: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("bin/special = %q, want %q (second's glue pass must not clobber the higher-priority file)", got, "first")
	}
}

func TestBuildLayersBaseBeneathPackages(t *testing.T) {
	storeDir := t.TempDir()
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "env")

	writeFile(t, filepath.Join(baseDir, "etc/passwd"), "root:x:0:0::/root:/bin/sh\n")
	pkg := repoindex.Record{Name: "a", Version: version.MustParse("1.0.0")}
	writeFile(t, filepath.Join(storeDir, pkg.Package().String(), "bin/tool"), "payload")

	if err := Build([]repoindex.Record{pkg}, storeDir, baseDir, outDir); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "etc/passwd")); err != nil {
		t.Fatalf("base file missing from environment: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "bin/tool")); err != nil {
		t.Fatalf("package file missing from environment: %v", err)
	}
}
