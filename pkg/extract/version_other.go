//go:build !windows

package extract

import "errors"

// FileVersion is only available on Windows.
func FileVersion(string) (string, error) {
	return "", errors.New("file version resources are only available on Windows")
}
