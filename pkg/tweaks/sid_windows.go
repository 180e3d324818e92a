//go:build windows

package tweaks

import "golang.org/x/sys/windows"

// CurrentUserSID returns the SID of the account running the process.
func CurrentUserSID() (string, error) {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", err
	}
	return user.User.Sid.String(), nil
}
