// pkg/installer/status.go - detecting already installed applications.

package installer

import (
	"fmt"
	"sort"
	"strings"

	version "github.com/hashicorp/go-version"

	"github.com/windowsadmins/winsetup/pkg/applist"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/regstore"
)

// uninstallPaths are the per-machine and per-user Uninstall roots.
var uninstallPaths = []string{
	`Software\Microsoft\Windows\CurrentVersion\Uninstall`,
	`Software\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

// RegistryApplication is one entry under an Uninstall key.
type RegistryApplication struct {
	Key       string
	Name      string
	Version   string
	Uninstall string
}

// InstalledApps enumerates the Uninstall keys of both hives. Entries without
// DisplayName or DisplayVersion are skipped. The result is sorted by name.
func InstalledApps(store regstore.Store) ([]RegistryApplication, error) {
	var apps []RegistryApplication
	var firstErr error
	for _, hive := range []regstore.Hive{regstore.LocalMachine, regstore.CurrentUser} {
		for _, root := range uninstallPaths {
			subKeys, err := store.SubKeys(hive, root)
			if err != nil {
				logging.Debug("Unable to read uninstall key", "key", regstore.KeyPath(hive, root), "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			for _, sub := range subKeys {
				path := root + `\` + sub
				name, err := store.GetString(hive, path, "DisplayName")
				if err != nil || strings.TrimSpace(name) == "" {
					continue
				}
				ver, err := store.GetString(hive, path, "DisplayVersion")
				if err != nil {
					continue
				}
				uninstall, _ := store.GetString(hive, path, "UninstallString")
				apps = append(apps, RegistryApplication{
					Key:       regstore.KeyPath(hive, path),
					Name:      strings.TrimSpace(name),
					Version:   strings.TrimSpace(ver),
					Uninstall: uninstall,
				})
			}
		}
	}
	if len(apps) == 0 && firstErr != nil {
		return nil, fmt.Errorf("reading installed applications: %w", firstErr)
	}
	sort.SliceStable(apps, func(a, b int) bool { return apps[a].Name < apps[b].Name })
	return apps, nil
}

// InstalledVersion returns the version of the installed application whose
// display name equals name, or failing that contains it (case-insensitive).
// An empty string means not installed.
func (i *Installer) InstalledVersion(name string) (string, error) {
	apps, err := InstalledApps(i.Store)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(name)
	for _, app := range apps {
		if strings.ToLower(app.Name) == want {
			logging.Debug("Exact registry match found", "app", name, "registryVersion", app.Version)
			return app.Version, nil
		}
	}
	for _, app := range apps {
		if strings.Contains(strings.ToLower(app.Name), want) {
			logging.Debug("Partial registry match found", "app", name, "registryEntry", app.Name, "registryVersion", app.Version)
			return app.Version, nil
		}
	}
	return "", nil
}

// Satisfied reports whether entry has a MinVersion and the installed version
// is at least that. It also returns the installed version it found.
func (i *Installer) Satisfied(entry applist.AppEntry) (bool, string, error) {
	if entry.MinVersion == "" {
		return false, "", nil
	}
	installed, err := i.InstalledVersion(entry.Name)
	if err != nil || installed == "" {
		return false, "", err
	}
	return AtLeast(installed, entry.MinVersion), installed, nil
}

// AtLeast reports whether have >= want. Unparseable versions compare false.
func AtLeast(have, want string) bool {
	vHave, errHave := version.NewVersion(have)
	vWant, errWant := version.NewVersion(want)
	if errHave != nil || errWant != nil {
		logging.Debug("Version parse error, treating as not satisfied",
			"have", have,
			"want", want,
			"errHave", errHave,
			"errWant", errWant,
		)
		return false
	}
	return vHave.GreaterThanOrEqual(vWant)
}
