package tweaks

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/regstore"
)

const (
	desktopKey       = `Control Panel\Desktop`
	internationalKey = `Control Panel\International`
	dwmKey           = `Software\Microsoft\Windows\DWM`
	accentKey        = `Software\Microsoft\Windows\CurrentVersion\Explorer\Accent`
	clipboardKey     = `Software\Microsoft\Clipboard`
	personalizeCSP   = `SOFTWARE\Microsoft\Windows\CurrentVersion\PersonalizationCSP`
)

// wallpaperStyles maps style names to WallpaperStyle and TileWallpaper.
var wallpaperStyles = map[string][2]string{
	"fill":    {"10", "0"},
	"fit":     {"6", "0"},
	"stretch": {"2", "0"},
	"tile":    {"0", "1"},
	"center":  {"0", "0"},
	"span":    {"22", "0"},
}

func (a *Applier) applyDPI(_ context.Context) error {
	percent := a.settings().DPIScalePercent
	if percent == 0 {
		return ErrNotConfigured
	}
	if percent < 100 || percent > 500 {
		return fmt.Errorf("scale %d%% out of range 100-500", percent)
	}
	if err := a.Store.SetDWord(regstore.CurrentUser, desktopKey, "LogPixels", uint32(percent*96/100)); err != nil {
		return err
	}
	return a.Store.SetDWord(regstore.CurrentUser, desktopKey, "Win8DpiScaling", 1)
}

func (a *Applier) applyWallpaper(_ context.Context) error {
	s := a.settings()
	if s.Wallpaper == "" {
		return ErrNotConfigured
	}
	style := strings.ToLower(s.WallpaperStyle)
	if style == "" {
		style = "fill"
	}
	values, ok := wallpaperStyles[style]
	if !ok {
		return fmt.Errorf("unknown wallpaper style %q", s.WallpaperStyle)
	}

	src := a.resolve(s.Wallpaper)
	if err := requireFile(src); err != nil {
		return err
	}
	dst := filepath.Join(a.dataDir(), "Wallpaper"+strings.ToLower(filepath.Ext(src)))
	if err := a.installFile(src, dst); err != nil {
		return fmt.Errorf("copying wallpaper: %w", err)
	}

	if err := a.Store.SetString(regstore.CurrentUser, desktopKey, "WallpaperStyle", values[0]); err != nil {
		return err
	}
	if err := a.Store.SetString(regstore.CurrentUser, desktopKey, "TileWallpaper", values[1]); err != nil {
		return err
	}
	if err := a.Store.SetString(regstore.CurrentUser, desktopKey, "Wallpaper", dst); err != nil {
		return err
	}
	if a.CheckOnly || a.Desktop == nil {
		return nil
	}
	return a.Desktop.SetWallpaper(dst)
}

func (a *Applier) applyLockScreen(_ context.Context) error {
	image := a.settings().LockScreen
	if image == "" {
		return ErrNotConfigured
	}
	src := a.resolve(image)
	if err := requireFile(src); err != nil {
		return err
	}
	dst := filepath.Join(a.lockScreenDir(), "LockScreen"+strings.ToLower(filepath.Ext(src)))
	if err := a.installFile(src, dst); err != nil {
		return fmt.Errorf("copying lock screen image: %w", err)
	}
	if err := a.Store.SetString(regstore.LocalMachine, personalizeCSP, "LockScreenImagePath", dst); err != nil {
		return err
	}
	if err := a.Store.SetString(regstore.LocalMachine, personalizeCSP, "LockScreenImageUrl", dst); err != nil {
		return err
	}
	return a.Store.SetDWord(regstore.LocalMachine, personalizeCSP, "LockScreenImageStatus", 1)
}

// ParseAccent converts "#RRGGBB" to the ABGR DWORD used by DWM and
// Explorer. Alpha is always 0xFF.
func ParseAccent(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("accent colour %q: want #RRGGBB", s)
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("accent colour %q: %w", s, err)
	}
	r := uint32(rgb>>16) & 0xFF
	g := uint32(rgb>>8) & 0xFF
	b := uint32(rgb) & 0xFF
	return 0xFF<<24 | b<<16 | g<<8 | r, nil
}

// ABGRToARGB swaps the red and blue channels of an accent value.
func ABGRToARGB(abgr uint32) uint32 {
	r := abgr & 0xFF
	b := (abgr >> 16) & 0xFF
	return abgr&0xFF00FF00 | r<<16 | b
}

func (a *Applier) applyAccent(_ context.Context) error {
	colour := a.settings().AccentColor
	if colour == "" {
		return ErrNotConfigured
	}
	abgr, err := ParseAccent(colour)
	if err != nil {
		return err
	}
	// ColorizationColor is 0xAARRGGBB; the accent values are ABGR.
	argb := ABGRToARGB(abgr)
	writes := []struct {
		path, name string
		value      uint32
	}{
		{dwmKey, "AccentColor", abgr},
		{dwmKey, "ColorizationColor", argb},
		{dwmKey, "ColorPrevalence", 1},
		{accentKey, "AccentColorMenu", abgr},
		{accentKey, "StartColorMenu", abgr},
	}
	for _, w := range writes {
		if err := a.Store.SetDWord(regstore.CurrentUser, w.path, w.name, w.value); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyClipboard(_ context.Context) error {
	enabled := a.settings().ClipboardSync
	if enabled == nil {
		return ErrNotConfigured
	}
	var v uint32
	if *enabled {
		v = 1
	}
	for _, name := range []string{"EnableClipboardHistory", "EnableCloudClipboard", "CloudClipboardAutomaticUpload"} {
		if err := a.Store.SetDWord(regstore.CurrentUser, clipboardKey, name, v); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyDateTime(_ context.Context) error {
	dt := a.settings().DateTime
	if dt == nil {
		return ErrNotConfigured
	}
	if d := dt.FirstDayOfWeek; d != nil && (*d < 0 || *d > 6) {
		return fmt.Errorf("FirstDayOfWeek %d out of range 0-6", *d)
	}
	values := []struct{ name, value string }{
		{"sShortDate", dt.ShortDate},
		{"sLongDate", dt.LongDate},
		{"sShortTime", dt.ShortTime},
		{"sTimeFormat", dt.TimeFormat},
	}
	if dt.FirstDayOfWeek != nil {
		values = append(values, struct{ name, value string }{"iFirstDayOfWeek", strconv.Itoa(*dt.FirstDayOfWeek)})
	}
	written := 0
	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := a.Store.SetString(regstore.CurrentUser, internationalKey, v.name, v.value); err != nil {
			return err
		}
		written++
	}
	if written == 0 {
		return ErrNotConfigured
	}
	return nil
}
