// pkg/tweaks/tweaks.go - registry, power and personalization tweaks.
//
// Each tweak reads its section of config.TweakSettings. A tweak with no
// configuration returns ErrNotConfigured so callers can count it as skipped.

package tweaks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/windowsadmins/winsetup/pkg/config"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/regstore"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

// ErrNotConfigured is returned by tweaks whose settings are empty.
var ErrNotConfigured = errors.New("tweak not configured")

// Desktop is the user32 surface the tweaks need.
type Desktop interface {
	SetWallpaper(path string) error
	BroadcastSettingChange(area string) error
}

// FeatureQuery reports the install state of optional features by name.
// State 1 means enabled.
type FeatureQuery interface {
	FeatureStates(ctx context.Context) (map[string]uint32, error)
}

// ProcessKiller stops processes by image name.
type ProcessKiller interface {
	Terminate(ctx context.Context, appName string) (int, error)
}

// Applier applies tweaks from one configuration.
type Applier struct {
	Config    *config.Configuration
	Store     regstore.Store
	Runner    shell.Runner
	Desktop   Desktop
	Features  FeatureQuery
	Processes ProcessKiller
	CheckOnly bool

	// Directories written by the file based tweaks. Empty fields use the
	// Windows defaults.
	DataDir          string // wallpaper copy, %APPDATA%\WinSetup
	LockScreenDir    string // %ProgramData%\WinSetup
	AccountPicsDir   string // %PUBLIC%\AccountPictures
	StartMenuDataDir string // StartMenuExperienceHost LocalState

	// UserSID overrides the current user's SID lookup.
	UserSID func() (string, error)
	// Now overrides the clock used for the Night Light timestamp.
	Now func() time.Time
}

// Tweak is one named step.
type Tweak struct {
	Name        string
	Description string
	apply       func(a *Applier, ctx context.Context) error
}

var all = []Tweak{
	{"dpi", "display scaling", (*Applier).applyDPI},
	{"wallpaper", "desktop wallpaper", (*Applier).applyWallpaper},
	{"lockscreen", "lock screen image", (*Applier).applyLockScreen},
	{"accountpicture", "account picture", (*Applier).applyAccountPicture},
	{"accent", "accent colour", (*Applier).applyAccent},
	{"clipboard", "clipboard history and sync", (*Applier).applyClipboard},
	{"features", "optional Windows features", (*Applier).applyFeatures},
	{"nightlight", "Night Light schedule", (*Applier).applyNightLight},
	{"startlayout", "start menu layout", (*Applier).applyStartLayout},
	{"datetime", "date and time formats", (*Applier).applyDateTime},
	{"power", "power plan and timeouts", (*Applier).applyPower},
	{"refresh", "notify the shell of changed settings", (*Applier).applyRefresh},
}

// All returns every tweak in the order they run.
func All() []Tweak {
	return append([]Tweak(nil), all...)
}

// Names returns the tweak names in order.
func Names() []string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a tweak by name, ignoring case.
func Lookup(name string) (Tweak, bool) {
	for _, t := range all {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return Tweak{}, false
}

// Apply runs the named tweak.
func (a *Applier) Apply(ctx context.Context, name string) error {
	t, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown tweak %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Debug("Applying tweak", "tweak", t.Name)
	err := t.apply(a, ctx)
	switch {
	case errors.Is(err, ErrNotConfigured):
		logging.Info("Tweak not configured, skipping", "tweak", t.Name)
	case err != nil:
		logging.Warn("Tweak failed", "tweak", t.Name, "error", err)
	default:
		logging.Info("Applied tweak", "tweak", t.Name, "description", t.Description)
	}
	return err
}

func (a *Applier) settings() config.TweakSettings {
	if a.Config == nil {
		return config.TweakSettings{}
	}
	return a.Config.Tweaks
}

func (a *Applier) resolve(p string) string {
	if a.Config == nil {
		return p
	}
	return a.Config.ResolveSync(p)
}

func (a *Applier) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func envDir(override, envVar, fallback string, parts ...string) string {
	if override != "" {
		return override
	}
	base := os.Getenv(envVar)
	if base == "" {
		base = fallback
	}
	return filepath.Join(append([]string{base}, parts...)...)
}

func (a *Applier) dataDir() string {
	return envDir(a.DataDir, "APPDATA", os.TempDir(), "WinSetup")
}

func (a *Applier) lockScreenDir() string {
	return envDir(a.LockScreenDir, "ProgramData", `C:\ProgramData`, "WinSetup")
}

func (a *Applier) accountPicsDir() string {
	return envDir(a.AccountPicsDir, "PUBLIC", `C:\Users\Public`, "AccountPictures")
}

func (a *Applier) startMenuDataDir() string {
	return envDir(a.StartMenuDataDir, "LOCALAPPDATA", os.TempDir(),
		"Packages", "Microsoft.Windows.StartMenuExperienceHost_cw5n1h2txyewy", "LocalState")
}

// installFile copies src to dst, replacing dst.
func (a *Applier) installFile(src, dst string) error {
	if a.CheckOnly {
		logging.Info("CheckOnly: would copy file", "source", src, "destination", dst)
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// requireFile checks that a configured source exists before anything is
// written.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
