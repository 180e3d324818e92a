//go:build windows

package tweaks

import (
	"fmt"
	"unsafe"

	"github.com/gonutz/w32"
	"golang.org/x/sys/windows"
)

const (
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02

	smtoAbortIfHung = 0x0002
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
	procSendMessageTimeoutW   = user32.NewProc("SendMessageTimeoutW")
)

// User32Desktop talks to the interactive desktop through user32.
type User32Desktop struct{}

// NewDesktop returns the user32 backed Desktop.
func NewDesktop() Desktop { return User32Desktop{} }

// SetWallpaper applies the image at path and persists it to the user profile.
func (User32Desktop) SetWallpaper(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	r, _, callErr := procSystemParametersInfoW.Call(
		spiSetDeskWallpaper, 0,
		uintptr(unsafe.Pointer(p)),
		spifUpdateIniFile|spifSendChange,
	)
	if r == 0 {
		return fmt.Errorf("SystemParametersInfoW(SPI_SETDESKWALLPAPER): %w", callErr)
	}
	return nil
}

// BroadcastSettingChange sends WM_SETTINGCHANGE for area to every top-level
// window. Hung windows are skipped and each window gets broadcastTimeout to
// answer.
func (User32Desktop) BroadcastSettingChange(area string) error {
	p, err := windows.UTF16PtrFromString(area)
	if err != nil {
		return err
	}
	ret, _, callErr := procSendMessageTimeoutW.Call(
		uintptr(w32.HWND_BROADCAST),
		w32.WM_SETTINGCHANGE,
		0,
		uintptr(unsafe.Pointer(p)),
		smtoAbortIfHung,
		uintptr(broadcastTimeout.Milliseconds()),
		0,
	)
	return broadcastError(area, ret, callErr)
}
