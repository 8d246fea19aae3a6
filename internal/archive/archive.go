// Package archive unpacks and packs dpt's package archive format: a
// zstd-compressed tar stream whose tree becomes a store entry. dpt wires
// github.com/klauspost/compress/zstd in here rather than inventing a codec.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// Extract streams r (a zstd-compressed tar) into destDir, preserving
// permissions and, where the platform supports it, ownership and xattrs.
// Existing entries are overwritten.
func Extract(r io.Reader, destDir string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening zstd stream: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(string(filepath.Separator)+hdr.Name))
		if err := extractEntry(tr, hdr, target); err != nil {
			return fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, target string) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, os.FileMode(hdr.Mode))
	case tar.TypeSymlink:
		_ = os.Remove(target)
		if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
			return err
		}
		return os.Symlink(hdr.Linkname, target)
	case tar.TypeLink:
		_ = os.Remove(target)
		return os.Link(filepath.Join(filepath.Dir(target), filepath.Base(hdr.Linkname)), target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
			return err
		}
		_ = os.Remove(target)
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(f, tr); err != nil {
			return err
		}
		if err := os.Chown(target, hdr.Uid, hdr.Gid); err != nil && !isPermissionError(err) {
			return err
		}
		return applyXattrs(target, hdr)
	default:
		// Device/fifo entries and anything else outside a package tree's
		// normal shape are skipped rather than failing the whole install.
		return nil
	}
}

func applyXattrs(target string, hdr *tar.Header) error {
	for k, v := range hdr.PAXRecords {
		const prefix = "SCHILY.xattr."
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if err := unix.Setxattr(target, name, []byte(v), 0); err != nil && !isPermissionError(err) {
			return fmt.Errorf("setting xattr %s: %w", name, err)
		}
	}
	return nil
}

func isPermissionError(err error) bool {
	return err == os.ErrPermission || strings.Contains(err.Error(), "operation not permitted")
}
