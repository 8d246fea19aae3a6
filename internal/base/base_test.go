package base

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dpt-pm/dpt/internal/manifest"
)

func TestRebuildWritesAccountsAndSymlinks(t *testing.T) {
	dptDir := t.TempDir()
	m := &manifest.Manifest{
		Users: []manifest.User{
			{Username: "root", UID: 0, GID: 0, Gecos: "root", Home: "/root", Shell: "/bin/sh"},
		},
		Groups: []manifest.Group{
			{Groupname: "wheel", GID: 10, Members: []string{"root"}},
		},
	}

	if err := Rebuild(m, dptDir); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	baseDir := filepath.Join(dptDir, "base")
	passwd, err := os.ReadFile(filepath.Join(baseDir, "etc/passwd"))
	if err != nil {
		t.Fatalf("reading etc/passwd: %v", err)
	}
	if string(passwd) != "root:x:0:0:root:/root:/bin/sh\n" {
		t.Fatalf("etc/passwd = %q", passwd)
	}

	group, err := os.ReadFile(filepath.Join(baseDir, "etc/group"))
	if err != nil {
		t.Fatalf("reading etc/group: %v", err)
	}
	if string(group) != "wheel:*:10:root\n" {
		t.Fatalf("etc/group = %q", group)
	}

	target, err := os.Readlink(filepath.Join(baseDir, "bin"))
	if err != nil {
		t.Fatalf("reading bin symlink: %v", err)
	}
	if target != "usr/bin" {
		t.Fatalf("bin -> %q, want usr/bin", target)
	}
}

func TestRebuildKeepsExistingBaseOnFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}

	dptDir := t.TempDir()
	baseDir := filepath.Join(dptDir, "base")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(baseDir, "marker")
	if err := os.WriteFile(marker, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	// Make dptDir read-only so Rebuild fails at its first write: renaming
	// the existing base to base.bak. The existing base must come through
	// the failed rebuild untouched.
	if err := os.Chmod(dptDir, 0555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dptDir, 0755)

	if err := Rebuild(&manifest.Manifest{}, dptDir); err == nil {
		t.Fatal("Rebuild: expected error, got nil")
	}

	if err := os.Chmod(dptDir, 0755); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("reading kept marker: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("marker = %q, want original contents kept", got)
	}
}
