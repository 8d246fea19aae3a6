// Package base generates and atomically replaces dpt's base skeleton: the
// FHS directory/symlink layout plus etc/passwd, etc/group, and
// etc/login.defs, layered beneath every environment.
package base

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dpt-pm/dpt/internal/manifest"
)

// loginDefs is the fixed etc/login.defs contents dpt writes on every
// rebuild.
const loginDefs = `MAIL_DIR        /var/mail
UMASK           022
HOME_MODE       0700
PASS_MAX_DAYS   99999
PASS_MIN_DAYS   0
PASS_WARN_AGE   7
UID_MIN         1000
UID_MAX         60000
GID_MIN         1000
GID_MAX         60000
LOGIN_RETRIES   5
LOGIN_TIMEOUT   60
`

// symlinks is the FHS symlink farm dpt lays down in every base: target ->
// link name, both relative to baseDir.
var symlinks = [][2]string{
	{"usr/lib", "lib"},
	{"usr/lib", "lib64"},
	{"usr/bin", "bin"},
	{"usr/bin", "sbin"},
	{"bin", "usr/sbin"},
	{"lib", "usr/lib64"},
}

// directories are created (with parents) before the symlink farm and the
// account files are written.
var directories = []string{"usr/bin", "usr/lib", "etc"}

// Rebuild regenerates dptDir/base from m, keeping the previous base as
// dptDir/base.bak until the new one is complete, restoring it if
// rebuilding fails partway through, and deleting it once the rebuild
// succeeds.
func Rebuild(m *manifest.Manifest, dptDir string) error {
	baseDir := filepath.Join(dptDir, "base")
	backupDir := filepath.Join(dptDir, "base.bak")

	if err := removeIfExists(backupDir); err != nil {
		return fmt.Errorf("clearing stale base backup: %w", err)
	}

	hadExisting := false
	if info, err := os.Lstat(baseDir); err == nil {
		hadExisting = true
		_ = info
		if err := os.Rename(baseDir, backupDir); err != nil {
			return fmt.Errorf("backing up existing base: %w", err)
		}
	}

	if err := rebuild(m, baseDir); err != nil {
		if hadExisting {
			// Clear the partial base first: a rename onto a non-empty
			// directory fails.
			_ = removeIfExists(baseDir)
			if restoreErr := os.Rename(backupDir, baseDir); restoreErr != nil {
				return fmt.Errorf("rebuilding base failed (%v) and restoring the backup also failed: %w", err, restoreErr)
			}
		}
		return fmt.Errorf("rebuilding base: %w", err)
	}

	if err := removeIfExists(backupDir); err != nil {
		return fmt.Errorf("removing base backup: %w", err)
	}
	return nil
}

func rebuild(m *manifest.Manifest, baseDir string) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return err
	}
	for _, d := range directories {
		if err := os.MkdirAll(filepath.Join(baseDir, d), 0755); err != nil {
			return err
		}
	}

	for _, link := range symlinks {
		target, name := link[0], link[1]
		path := filepath.Join(baseDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		_ = os.Remove(path)
		if err := os.Symlink(target, path); err != nil {
			return err
		}
	}

	if err := os.WriteFile(filepath.Join(baseDir, "etc/passwd"), []byte(renderPasswd(m.Users)), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(baseDir, "etc/group"), []byte(renderGroup(m.Groups)), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(baseDir, "etc/login.defs"), []byte(loginDefs), 0644); err != nil {
		return err
	}

	return nil
}

// renderPasswd formats one "name:x:uid:gid:gecos:home:shell" line per
// user.
func renderPasswd(users []manifest.User) string {
	var sb strings.Builder
	for _, u := range users {
		sb.WriteString(u.Username)
		sb.WriteString(":x:")
		sb.WriteString(strconv.FormatUint(u.UID, 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(u.GID, 10))
		sb.WriteByte(':')
		sb.WriteString(u.Gecos)
		sb.WriteByte(':')
		sb.WriteString(u.Home)
		sb.WriteByte(':')
		sb.WriteString(u.Shell)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// renderGroup formats one "name:*:gid:member1,member2,..." line per group.
func renderGroup(groups []manifest.Group) string {
	var sb strings.Builder
	for _, g := range groups {
		sb.WriteString(g.Groupname)
		sb.WriteString(":*:")
		sb.WriteString(strconv.FormatUint(g.GID, 10))
		sb.WriteByte(':')
		sb.WriteString(strings.Join(g.Members, ","))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func removeIfExists(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(p)
	}
	return os.Remove(p)
}
