// pkg/extract/zip.go - unpacking portable applications.

package extract

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// ErrUnsafePath is returned for archive entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Zip extracts the archive at src into dest and returns the number of files
// written. When every entry shares a single top-level directory that
// directory is stripped, so "tool-1.2/tool.exe" lands at dest\tool.exe.
func Zip(src, dest string) (int, error) {
	r, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return 0, fmt.Errorf("%s: %w", src, ErrUnsafePath)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", src, err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	prefix := commonRoot(r.File)
	written := 0
	for _, f := range r.File {
		name := strings.TrimPrefix(entryName(f), prefix)
		if name == "" {
			continue
		}
		target, err := safeJoin(root, name)
		if err != nil {
			return written, fmt.Errorf("%s: %w", f.Name, err)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return written, err
		}
		written++
	}
	logging.Debug("Extracted archive", "archive", src, "destination", dest, "files", written)
	return written, nil
}

// safeJoin joins name under root and rejects results outside root.
func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", ErrUnsafePath
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return target, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// entryName returns the archive path of f with forward slashes. A leading
// slash is kept so safeJoin rejects the entry.
func entryName(f *zip.File) string {
	return strings.ReplaceAll(f.Name, `\`, "/")
}

// commonRoot returns "dir/" when all entries live under one top-level
// directory, otherwise "".
func commonRoot(files []*zip.File) string {
	var root string
	for i, f := range files {
		first, _, nested := strings.Cut(entryName(f), "/")
		if !nested && !f.FileInfo().IsDir() {
			return ""
		}
		if i == 0 {
			root = first
		} else if root != first {
			return ""
		}
	}
	if root == "" || root == ".." || root == "." {
		return ""
	}
	return root + "/"
}
