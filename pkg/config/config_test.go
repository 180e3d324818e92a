package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/winsetup/pkg/regstore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
SyncRoot: /sync
AppList: lists/apps.txt
LogLevel: DEBUG
InstallerTimeoutMinutes: 30
Tweaks:
  DPIScalePercent: 150
  AccentColor: "#0078D4"
  OptionalFeatures: [Microsoft-Windows-Subsystem-Linux]
  NightLight:
    Enabled: true
    Start: "21:00"
    End: "07:00"
    Temperature: 3400
  Power:
    Plan: SCHEME_MIN
    MonitorTimeoutAC: 0
`)
	cfg, err := LoadConfig(path, regstore.NewMemory())
	require.NoError(t, err)

	assert.Equal(t, "/sync", cfg.SyncRoot)
	assert.Equal(t, filepath.Join("/sync", "lists/apps.txt"), cfg.AppListPath())
	assert.Equal(t, filepath.Join("/sync", "winget.txt"), cfg.WingetListPath())
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 30, cfg.InstallerTimeoutMinutes)
	assert.Equal(t, 150, cfg.Tweaks.DPIScalePercent)
	assert.Equal(t, "#0078D4", cfg.Tweaks.AccentColor)
	assert.Equal(t, []string{"Microsoft-Windows-Subsystem-Linux"}, cfg.Tweaks.OptionalFeatures)
	require.NotNil(t, cfg.Tweaks.NightLight)
	assert.Equal(t, 3400, cfg.Tweaks.NightLight.Temperature)
	require.NotNil(t, cfg.Tweaks.Power)
	require.NotNil(t, cfg.Tweaks.Power.MonitorTimeoutAC)
	assert.Equal(t, 0, *cfg.Tweaks.Power.MonitorTimeoutAC)
	assert.Nil(t, cfg.Tweaks.Power.StandbyTimeoutAC)
	assert.Nil(t, cfg.Tweaks.DateTime)
	assert.Len(t, cfg.ConfigFiles, len(DefaultConfigFiles()))
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("WINSETUP_TEST_ROOT", "/home/me")
	path := writeConfig(t, `
SyncRoot: "%WINSETUP_TEST_ROOT%/OneDrive/Setup"
LogPath: "%WINSETUP_TEST_ROOT%/logs"
ConfigFiles:
  - Name: git
    Source: git/.gitconfig
    Destination: "%WINSETUP_TEST_ROOT%/.gitconfig"
`)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/home/me/OneDrive/Setup", cfg.SyncRoot)
	assert.Equal(t, "/home/me/logs", cfg.LogPath)
	require.Len(t, cfg.ConfigFiles, 1)
	assert.Equal(t, "/home/me/.gitconfig", cfg.ConfigFiles[0].Destination)
}

func TestLoadConfig_EmptyConfigFilesDisablesDefaults(t *testing.T) {
	path := writeConfig(t, "SyncRoot: /sync\nConfigFiles: []\n")
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.NotNil(t, cfg.ConfigFiles)
	assert.Empty(t, cfg.ConfigFiles)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "SyncRoot: /sync\nInstallerTimeoutMinutes: -4\n")
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	def := GetDefaultConfig()
	assert.Equal(t, def.AppList, cfg.AppList)
	assert.Equal(t, def.WingetList, cfg.WingetList)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 15, cfg.InstallerTimeoutMinutes)
	assert.False(t, cfg.CheckOnly)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing sync root": "LogLevel: INFO\n",
		"dpi out of range":  "SyncRoot: /sync\nTweaks:\n  DPIScalePercent: 90\n",
		"mapping without destination": `
SyncRoot: /sync
ConfigFiles:
  - Name: broken
    Source: x
`,
		"malformed yaml": "SyncRoot: [unterminated\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_RegistryFallback(t *testing.T) {
	store := regstore.NewMemory()
	require.NoError(t, store.SetString(regstore.CurrentUser, RegistryPath, "SyncRoot", "/reg/sync"))
	require.NoError(t, store.SetString(regstore.CurrentUser, RegistryPath, "AppList", "mine.txt"))
	require.NoError(t, store.SetDWord(regstore.CurrentUser, RegistryPath, "CheckOnly", 1))
	require.NoError(t, store.SetString(regstore.CurrentUser, RegistryPath, "DPIScalePercent", "125"))
	require.NoError(t, store.SetDWord(regstore.CurrentUser, RegistryPath, "InstallerTimeoutMinutes", 5))
	require.NoError(t, store.SetString(regstore.CurrentUser, RegistryPath, "OptionalFeatures", "A, B,,C"))

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := LoadConfig(missing, store)
	require.NoError(t, err)

	assert.Equal(t, "/reg/sync", cfg.SyncRoot)
	assert.Equal(t, filepath.Join("/reg/sync", "mine.txt"), cfg.AppListPath())
	assert.True(t, cfg.CheckOnly)
	assert.Equal(t, 125, cfg.Tweaks.DPIScalePercent)
	assert.Equal(t, 5, cfg.InstallerTimeoutMinutes)
	assert.Equal(t, []string{"A", "B", "C"}, cfg.Tweaks.OptionalFeatures)
}

func TestLoadConfig_RegistryFallbackRequiresSyncRoot(t *testing.T) {
	store := regstore.NewMemory()
	require.NoError(t, store.SetString(regstore.CurrentUser, RegistryPath, "AppList", "mine.txt"))

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), store)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	enabled := true
	cfg := GetDefaultConfig()
	cfg.SyncRoot = "/sync"
	cfg.ConfigFiles = []FileMapping{{Name: "git", Source: "git/.gitconfig", Destination: "/home/.gitconfig"}}
	cfg.Tweaks.ClipboardSync = &enabled

	path := filepath.Join(t.TempDir(), "nested", "Config.yaml")
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.ConfigFiles, loaded.ConfigFiles)
	require.NotNil(t, loaded.Tweaks.ClipboardSync)
	assert.True(t, *loaded.Tweaks.ClipboardSync)
}

func TestResolveSync(t *testing.T) {
	cfg := &Configuration{SyncRoot: "/sync"}
	abs := filepath.Join(t.TempDir(), "apps.txt")

	assert.Equal(t, filepath.Join("/sync", "apps.txt"), cfg.ResolveSync("apps.txt"))
	assert.Equal(t, abs, cfg.ResolveSync(abs))
	assert.Equal(t, `\\server\share\apps.txt`, cfg.ResolveSync(`\\server\share\apps.txt`))
	assert.Equal(t, "", cfg.ResolveSync(""))
}
