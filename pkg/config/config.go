// pkg/config/config.go - configuration settings for winsetup.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/winsetup/pkg/pathutil"
	"github.com/windowsadmins/winsetup/pkg/regstore"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = `%LOCALAPPDATA%\WinSetup\Config.yaml`

// RegistryPath holds fallback settings under HKCU when no YAML file exists.
const RegistryPath = `Software\WinSetup\Config`

// Configuration holds the configurable options for winsetup in YAML format
type Configuration struct {
	SyncRoot      string `yaml:"SyncRoot"`   // cloud-synced folder holding lists, images and dotfiles
	AppList       string `yaml:"AppList"`    // relative paths resolve against SyncRoot
	WingetList    string `yaml:"WingetList"` // relative paths resolve against SyncRoot
	DownloadPath  string `yaml:"DownloadPath"`
	BackupPath    string `yaml:"BackupPath"`
	LogPath       string `yaml:"LogPath"`
	LogLevel      string `yaml:"LogLevel"`
	CheckOnly     bool   `yaml:"CheckOnly"`
	KeepDownloads bool   `yaml:"KeepDownloads"`
	// AppChecksums maps an application name from the app list to the
	// SHA-256 its downloaded installer must have.
	AppChecksums            map[string]string `yaml:"AppChecksums,omitempty"`
	InstallerTimeoutMinutes int               `yaml:"InstallerTimeoutMinutes"`
	PreflightScript         string            `yaml:"PreflightScript,omitempty"`
	PostflightScript        string            `yaml:"PostflightScript,omitempty"`
	ConfigFiles             []FileMapping     `yaml:"ConfigFiles"`
	Tweaks                  TweakSettings     `yaml:"Tweaks"`
}

// FileMapping copies one file or directory from the sync root into place.
type FileMapping struct {
	Name         string   `yaml:"Name"`
	Source       string   `yaml:"Source"`      // relative to SyncRoot
	Destination  string   `yaml:"Destination"` // %VAR% references are expanded
	Directory    bool     `yaml:"Directory,omitempty"`
	BlockingApps []string `yaml:"BlockingApps,omitempty"`
	PrivateKeys  bool     `yaml:"PrivateKeys,omitempty"` // restrict ACLs on id_* files without .pub
}

// TweakSettings configures the registry and personalization tweaks. Empty
// fields skip the corresponding tweak.
type TweakSettings struct {
	DPIScalePercent  int                 `yaml:"DPIScalePercent,omitempty"`
	Wallpaper        string              `yaml:"Wallpaper,omitempty"`
	WallpaperStyle   string              `yaml:"WallpaperStyle,omitempty"` // fill, fit, stretch, tile, center, span
	LockScreen       string              `yaml:"LockScreen,omitempty"`
	AccountPicture   string              `yaml:"AccountPicture,omitempty"`
	AccentColor      string              `yaml:"AccentColor,omitempty"` // #RRGGBB
	ClipboardSync    *bool               `yaml:"ClipboardSync,omitempty"`
	OptionalFeatures []string            `yaml:"OptionalFeatures,omitempty"`
	NightLight       *NightLightSettings `yaml:"NightLight,omitempty"`
	StartLayout      string              `yaml:"StartLayout,omitempty"`
	DateTime         *DateTimeSettings   `yaml:"DateTime,omitempty"`
	Power            *PowerSettings      `yaml:"Power,omitempty"`
	RestartExplorer  bool                `yaml:"RestartExplorer,omitempty"`
}

// NightLightSettings is the Night Light schedule.
type NightLightSettings struct {
	Enabled     bool   `yaml:"Enabled"`
	Start       string `yaml:"Start"` // HH:MM
	End         string `yaml:"End"`   // HH:MM
	Temperature int    `yaml:"Temperature"`
}

// DateTimeSettings are the regional format overrides.
type DateTimeSettings struct {
	ShortDate      string `yaml:"ShortDate,omitempty"`
	LongDate       string `yaml:"LongDate,omitempty"`
	ShortTime      string `yaml:"ShortTime,omitempty"`
	TimeFormat     string `yaml:"TimeFormat,omitempty"`
	FirstDayOfWeek *int   `yaml:"FirstDayOfWeek,omitempty"` // 0 = Monday
}

// PowerSettings are applied with powercfg. Timeouts are minutes; zero means never.
type PowerSettings struct {
	Plan             string `yaml:"Plan,omitempty"` // scheme GUID or alias such as SCHEME_MIN
	MonitorTimeoutAC *int   `yaml:"MonitorTimeoutAC,omitempty"`
	MonitorTimeoutDC *int   `yaml:"MonitorTimeoutDC,omitempty"`
	StandbyTimeoutAC *int   `yaml:"StandbyTimeoutAC,omitempty"`
	StandbyTimeoutDC *int   `yaml:"StandbyTimeoutDC,omitempty"`
	Hibernate        *bool  `yaml:"Hibernate,omitempty"`
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		AppList:                 "apps.txt",
		WingetList:              "winget.txt",
		DownloadPath:            `%USERPROFILE%\Downloads\WinSetup`,
		BackupPath:              `%LOCALAPPDATA%\WinSetup\backup`,
		LogPath:                 `%LOCALAPPDATA%\WinSetup\logs`,
		LogLevel:                "INFO",
		InstallerTimeoutMinutes: 15,
	}
}

// DefaultConfigFiles are used when the configuration lists none.
func DefaultConfigFiles() []FileMapping {
	return []FileMapping{
		{
			Name:        "terminal",
			Source:      `WindowsTerminal\settings.json`,
			Destination: `%LOCALAPPDATA%\Packages\Microsoft.WindowsTerminal_8wekyb3d8bbwe\LocalState\settings.json`,
		},
		{
			Name:        "ssh",
			Source:      `ssh`,
			Destination: `%USERPROFILE%\.ssh`,
			Directory:   true,
			PrivateKeys: true,
		},
		{
			Name:         "edge",
			Source:       `Edge\Default`,
			Destination:  `%LOCALAPPDATA%\Microsoft\Edge\User Data\Default`,
			Directory:    true,
			BlockingApps: []string{"msedge.exe"},
		},
		{
			Name:        "git",
			Source:      `git\.gitconfig`,
			Destination: `%USERPROFILE%\.gitconfig`,
		},
	}
}

// LoadConfig reads the YAML file at path. If the file does not exist the
// settings are read from the registry key RegistryPath instead. Defaults are
// applied and %VAR% references expanded before validation.
func LoadConfig(path string, store regstore.Store) (*Configuration, error) {
	path = pathutil.ExpandWindowsEnv(path)

	cfg := GetDefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if regErr := loadFromRegistry(store, cfg); regErr != nil {
			return nil, fmt.Errorf("configuration file %s does not exist and registry fallback failed: %w", path, regErr)
		}
	default:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg.applyDefaults()
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path.
func SaveConfig(path string, cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	path = pathutil.ExpandWindowsEnv(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

func (c *Configuration) applyDefaults() {
	def := GetDefaultConfig()
	if c.AppList == "" {
		c.AppList = def.AppList
	}
	if c.WingetList == "" {
		c.WingetList = def.WingetList
	}
	if c.DownloadPath == "" {
		c.DownloadPath = def.DownloadPath
	}
	if c.BackupPath == "" {
		c.BackupPath = def.BackupPath
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.InstallerTimeoutMinutes <= 0 {
		c.InstallerTimeoutMinutes = def.InstallerTimeoutMinutes
	}
	// An explicit empty list in YAML disables config syncing.
	if c.ConfigFiles == nil {
		c.ConfigFiles = DefaultConfigFiles()
	}
}

func (c *Configuration) expand() {
	for _, p := range []*string{&c.SyncRoot, &c.DownloadPath, &c.BackupPath, &c.LogPath} {
		*p = pathutil.ExpandWindowsEnv(*p)
	}
	for i := range c.ConfigFiles {
		c.ConfigFiles[i].Destination = pathutil.ExpandWindowsEnv(c.ConfigFiles[i].Destination)
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.SyncRoot) == "" {
		return errors.New("SyncRoot is required")
	}
	if p := c.Tweaks.DPIScalePercent; p != 0 && (p < 100 || p > 500) {
		return fmt.Errorf("DPIScalePercent %d out of range 100-500", p)
	}
	for i, m := range c.ConfigFiles {
		if m.Source == "" || m.Destination == "" {
			return fmt.Errorf("ConfigFiles[%d] (%s): Source and Destination are required", i, m.Name)
		}
	}
	return nil
}

// ResolveSync resolves p against SyncRoot unless it is already absolute.
func (c *Configuration) ResolveSync(p string) string {
	p = pathutil.ExpandWindowsEnv(p)
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, `\\`) {
		return p
	}
	return filepath.Join(c.SyncRoot, p)
}

// AppListPath is the absolute path of the pipe-delimited application list.
func (c *Configuration) AppListPath() string { return c.ResolveSync(c.AppList) }

// WingetListPath is the absolute path of the winget package list.
func (c *Configuration) WingetListPath() string { return c.ResolveSync(c.WingetList) }

// loadFromRegistry fills cfg from RegistryPath. SyncRoot must be present.
func loadFromRegistry(store regstore.Store, cfg *Configuration) error {
	if store == nil {
		return errors.New("no registry available")
	}
	if _, err := store.GetString(regstore.CurrentUser, RegistryPath, "SyncRoot"); err != nil {
		return fmt.Errorf("essential registry configuration missing: %w", err)
	}

	loadString(store, "SyncRoot", &cfg.SyncRoot)
	loadString(store, "AppList", &cfg.AppList)
	loadString(store, "WingetList", &cfg.WingetList)
	loadString(store, "DownloadPath", &cfg.DownloadPath)
	loadString(store, "BackupPath", &cfg.BackupPath)
	loadString(store, "LogPath", &cfg.LogPath)
	loadString(store, "LogLevel", &cfg.LogLevel)
	loadString(store, "PreflightScript", &cfg.PreflightScript)
	loadString(store, "PostflightScript", &cfg.PostflightScript)
	loadString(store, "Wallpaper", &cfg.Tweaks.Wallpaper)
	loadString(store, "WallpaperStyle", &cfg.Tweaks.WallpaperStyle)
	loadString(store, "LockScreen", &cfg.Tweaks.LockScreen)
	loadString(store, "AccountPicture", &cfg.Tweaks.AccountPicture)
	loadString(store, "AccentColor", &cfg.Tweaks.AccentColor)
	loadString(store, "StartLayout", &cfg.Tweaks.StartLayout)

	loadInt(store, "InstallerTimeoutMinutes", &cfg.InstallerTimeoutMinutes)
	loadInt(store, "DPIScalePercent", &cfg.Tweaks.DPIScalePercent)

	loadBool(store, "CheckOnly", &cfg.CheckOnly)
	loadBool(store, "KeepDownloads", &cfg.KeepDownloads)
	loadBool(store, "RestartExplorer", &cfg.Tweaks.RestartExplorer)

	loadStringArray(store, "OptionalFeatures", &cfg.Tweaks.OptionalFeatures)
	return nil
}

func loadString(store regstore.Store, name string, target *string) {
	if val, err := store.GetString(regstore.CurrentUser, RegistryPath, name); err == nil && val != "" {
		*target = val
	}
}

// loadBool accepts "true"/"false"/"1"/"0" strings or a DWORD.
func loadBool(store regstore.Store, name string, target *bool) {
	if val, err := store.GetString(regstore.CurrentUser, RegistryPath, name); err == nil {
		if parsed, perr := strconv.ParseBool(val); perr == nil {
			*target = parsed
			return
		}
	}
	if val, err := store.GetDWord(regstore.CurrentUser, RegistryPath, name); err == nil {
		*target = val != 0
	}
}

func loadInt(store regstore.Store, name string, target *int) {
	if val, err := store.GetString(regstore.CurrentUser, RegistryPath, name); err == nil {
		if parsed, perr := strconv.Atoi(val); perr == nil {
			*target = parsed
			return
		}
	}
	if val, err := store.GetDWord(regstore.CurrentUser, RegistryPath, name); err == nil {
		*target = int(val)
	}
}

// loadStringArray accepts REG_MULTI_SZ or a comma-separated string.
func loadStringArray(store regstore.Store, name string, target *[]string) {
	var raw []string
	if vals, err := store.GetStrings(regstore.CurrentUser, RegistryPath, name); err == nil {
		raw = vals
	} else if val, err := store.GetString(regstore.CurrentUser, RegistryPath, name); err == nil {
		raw = strings.Split(val, ",")
	}
	var filtered []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) > 0 {
		*target = filtered
	}
}
