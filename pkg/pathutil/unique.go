// pkg/pathutil/unique.go - helpers for choosing destination paths.

package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// UniquePath returns path if nothing exists there. Otherwise it inserts
// " (n)" before the extension, trying n = 1, 2, ... and returns the first
// candidate that does not exist. Two callers racing on the same directory
// can receive the same answer.
func UniquePath(path string) (string, error) {
	return uniquePath(path, exists)
}

func uniquePath(path string, exists func(string) (bool, error)) (string, error) {
	taken, err := exists(path)
	if err != nil {
		return "", err
	}
	if !taken {
		return path, nil
	}

	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

// ExpandWindowsEnv replaces %NAME% references with the value of the
// environment variable NAME. Unknown variables and lone percent signs are
// left untouched, matching cmd.exe.
func ExpandWindowsEnv(s string) string {
	return expandWindowsEnv(s, os.LookupEnv)
}

func expandWindowsEnv(s string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start + 1
		name := s[start+1 : end]
		if val, ok := lookup(name); ok && name != "" {
			b.WriteString(s[:start])
			b.WriteString(val)
			s = s[end+1:]
			continue
		}
		// Keep the first percent sign and rescan from the second one.
		b.WriteString(s[:end])
		s = s[end:]
	}
}
