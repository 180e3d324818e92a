//go:build !windows

package tweaks

import "errors"

// CurrentUserSID is only available on Windows.
func CurrentUserSID() (string, error) {
	return "", errors.New("user SIDs are only available on Windows")
}
