// pkg/provision/provision.go - runs the provisioning phases and tallies the results.

package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/applist"
	"github.com/windowsadmins/winsetup/pkg/config"
	"github.com/windowsadmins/winsetup/pkg/configsync"
	"github.com/windowsadmins/winsetup/pkg/download"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/tweaks"
	"github.com/windowsadmins/winsetup/pkg/winget"
)

// Phase names, in the order Run executes them.
const (
	PhaseApps    = "apps"
	PhaseWinget  = "winget"
	PhaseConfigs = "configs"
	PhaseTweaks  = "tweaks"
)

// ErrChecksumMismatch is returned when a downloaded installer does not
// match its configured SHA-256.
var ErrChecksumMismatch = errors.New("installer checksum mismatch")

// Phases lists every phase in execution order.
var Phases = []string{PhaseApps, PhaseWinget, PhaseConfigs, PhaseTweaks}

// ParsePhases validates a list of phase names, which may be comma separated,
// and returns them in execution order. An empty list selects every phase.
func ParsePhases(names []string) ([]string, error) {
	want := make(map[string]bool)
	for _, n := range names {
		for _, p := range strings.Split(n, ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			if !isPhase(p) {
				return nil, fmt.Errorf("unknown phase %q (available: %s)", p, strings.Join(Phases, ", "))
			}
			want[p] = true
		}
	}
	if len(want) == 0 {
		return append([]string(nil), Phases...), nil
	}
	var out []string
	for _, p := range Phases {
		if want[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func isPhase(name string) bool {
	for _, p := range Phases {
		if p == name {
			return true
		}
	}
	return false
}

// Summary counts the outcome of each item in one phase.
type Summary struct {
	Phase     string
	Succeeded int
	Failed    int
	Skipped   int
	// Pending counts items a check-only run would have acted on.
	Pending  int
	Failures []string
}

func (s *Summary) pending() { s.Pending++ }
func (s *Summary) succeed() { s.Succeeded++ }
func (s *Summary) skip()    { s.Skipped++ }
func (s *Summary) fail(item string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, fmt.Sprintf("%s: %v", item, err))
}

// PhaseSummary converts s for the session summary file.
func (s Summary) PhaseSummary() logging.PhaseSummary {
	return logging.PhaseSummary{
		Name:      s.Phase,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Pending:   s.Pending,
		Failures:  s.Failures,
	}
}

// Fetcher downloads installers.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dir, ext string) (string, error)
}

// AppInstaller installs downloaded applications.
type AppInstaller interface {
	Satisfied(entry applist.AppEntry) (bool, string, error)
	Install(ctx context.Context, entry applist.AppEntry, file string) error
}

// PackageInstaller installs winget packages.
type PackageInstaller interface {
	Install(ctx context.Context, id string) error
	IsInstalled(ctx context.Context, id string) (bool, error)
}

// ConfigSyncer copies one configuration mapping into place.
type ConfigSyncer interface {
	Sync(ctx context.Context, m config.FileMapping) error
}

// TweakApplier applies one named tweak.
type TweakApplier interface {
	Apply(ctx context.Context, name string) error
}

// Provisioner holds the work items and the components that carry them out.
type Provisioner struct {
	Apps     []applist.AppEntry
	Packages []string
	Configs  []config.FileMapping
	Tweaks   []string

	Downloader Fetcher
	Installer  AppInstaller
	Winget     PackageInstaller
	Syncer     ConfigSyncer
	Tweaker    TweakApplier

	DownloadDir   string
	KeepDownloads bool
	CheckOnly     bool
	// Checksums maps application names to expected installer SHA-256 sums.
	Checksums map[string]string
}

// Run executes phases in order. Item failures are recorded in the returned
// summaries and never stop the run; only cancellation of ctx does.
func (p *Provisioner) Run(ctx context.Context, phases []string) ([]Summary, error) {
	var summaries []Summary
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		logging.Info("Starting phase", "phase", phase)
		var s Summary
		switch phase {
		case PhaseApps:
			s = p.InstallApps(ctx)
		case PhaseWinget:
			s = p.InstallPackages(ctx)
		case PhaseConfigs:
			s = p.SyncConfigs(ctx)
		case PhaseTweaks:
			s = p.ApplyTweaks(ctx)
		default:
			return summaries, fmt.Errorf("unknown phase %q", phase)
		}
		logging.Info("Finished phase", "phase", phase,
			"succeeded", s.Succeeded, "failed", s.Failed, "skipped", s.Skipped, "pending", s.Pending)
		summaries = append(summaries, s)
	}
	return summaries, ctx.Err()
}

// InstallApps downloads and installs every entry of the application list.
func (p *Provisioner) InstallApps(ctx context.Context) Summary {
	s := Summary{Phase: PhaseApps}
	for _, entry := range p.Apps {
		if ctx.Err() != nil {
			break
		}
		ok, installed, err := p.Installer.Satisfied(entry)
		if err != nil {
			logging.Warn("Could not read installed version", "app", entry.Name, "error", err)
		}
		if ok {
			logging.Info("Application already at required version, skipping",
				"app", entry.Name, "installed", installed, "minVersion", entry.MinVersion)
			s.skip()
			continue
		}
		if p.CheckOnly {
			logging.Info("CheckOnly: would install application", "app", entry.Name, "url", entry.URL, "type", entry.Type)
			s.pending()
			continue
		}
		if err := p.installApp(ctx, entry); err != nil {
			logging.Warn("Application install failed", "app", entry.Name, "error", err)
			s.fail(entry.Name, err)
			continue
		}
		logging.Info("Installed application", "app", entry.Name)
		s.succeed()
	}
	return s
}

func (p *Provisioner) installApp(ctx context.Context, entry applist.AppEntry) error {
	file, err := p.Downloader.Fetch(ctx, entry.URL, p.DownloadDir, "."+string(entry.Type))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !p.KeepDownloads {
		defer func() {
			if err := os.RemoveAll(file); err != nil {
				logging.Debug("Failed to remove installer", "file", file, "error", err)
			}
		}()
	}
	if err := p.verify(entry, file); err != nil {
		return err
	}
	return p.Installer.Install(ctx, entry, file)
}

// verify checks file against the configured checksum for entry, if any.
func (p *Provisioner) verify(entry applist.AppEntry, file string) error {
	want := p.checksum(entry.Name)
	if want == "" {
		return nil
	}
	ok, err := download.Verify(file, want)
	if err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, filepath.Base(file))
	}
	logging.Debug("Installer checksum verified", "app", entry.Name)
	return nil
}

func (p *Provisioner) checksum(name string) string {
	if sum, ok := p.Checksums[name]; ok {
		return sum
	}
	for k, sum := range p.Checksums {
		if strings.EqualFold(k, name) {
			return sum
		}
	}
	return ""
}

// InstallPackages installs every winget package identifier.
func (p *Provisioner) InstallPackages(ctx context.Context) Summary {
	s := Summary{Phase: PhaseWinget}
	for _, id := range p.Packages {
		if ctx.Err() != nil {
			break
		}
		if p.CheckOnly {
			p.checkPackage(ctx, id, &s)
			continue
		}
		err := p.Winget.Install(ctx, id)
		switch {
		case errors.Is(err, winget.ErrAlreadyInstalled):
			logging.Info("winget package already installed", "id", id)
			s.skip()
		case err != nil:
			logging.Warn("winget install failed", "id", id, "error", err)
			s.fail(id, err)
		default:
			s.succeed()
		}
	}
	return s
}

// checkPackage reports whether a check-only run would install id.
func (p *Provisioner) checkPackage(ctx context.Context, id string, s *Summary) {
	installed, err := p.Winget.IsInstalled(ctx, id)
	switch {
	case err != nil:
		logging.Warn("Could not query winget, assuming not installed", "id", id, "error", err)
		s.pending()
	case installed:
		logging.Info("winget package already installed", "id", id)
		s.skip()
	default:
		logging.Info("CheckOnly: would install winget package", "id", id)
		s.pending()
	}
}

// SyncConfigs copies every configuration mapping.
func (p *Provisioner) SyncConfigs(ctx context.Context) Summary {
	s := Summary{Phase: PhaseConfigs}
	for _, m := range p.Configs {
		if ctx.Err() != nil {
			break
		}
		err := p.Syncer.Sync(ctx, m)
		switch {
		case errors.Is(err, configsync.ErrSourceMissing):
			logging.Warn("Configuration source missing, skipping", "config", m.Name, "error", err)
			s.skip()
		case errors.Is(err, configsync.ErrBlocked):
			logging.Warn("Configuration in use, skipping", "config", m.Name, "error", err)
			s.skip()
		case err != nil:
			logging.Warn("Configuration copy failed", "config", m.Name, "error", err)
			s.fail(m.Name, err)
		default:
			logging.Info("Copied configuration", "config", m.Name)
			s.succeed()
		}
	}
	return s
}

// ApplyTweaks applies the selected tweaks, or all of them when none are
// selected.
func (p *Provisioner) ApplyTweaks(ctx context.Context) Summary {
	s := Summary{Phase: PhaseTweaks}
	names := p.Tweaks
	if len(names) == 0 {
		names = tweaks.Names()
	}
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		err := p.Tweaker.Apply(ctx, name)
		switch {
		case errors.Is(err, tweaks.ErrNotConfigured):
			s.skip()
		case err != nil:
			s.fail(name, err)
		default:
			s.succeed()
		}
	}
	return s
}
