//go:build !windows

package tweaks

import "errors"

var errNoDesktop = errors.New("desktop changes are only available on Windows")

// User32Desktop is only functional on Windows.
type User32Desktop struct{}

// NewDesktop returns a Desktop that always fails off Windows.
func NewDesktop() Desktop { return User32Desktop{} }

func (User32Desktop) SetWallpaper(string) error { return errNoDesktop }

func (User32Desktop) BroadcastSettingChange(string) error { return errNoDesktop }
