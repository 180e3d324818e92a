package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/winsetup/pkg/applist"
	"github.com/windowsadmins/winsetup/pkg/blocking"
	"github.com/windowsadmins/winsetup/pkg/config"
	"github.com/windowsadmins/winsetup/pkg/configsync"
	"github.com/windowsadmins/winsetup/pkg/download"
	"github.com/windowsadmins/winsetup/pkg/facts"
	"github.com/windowsadmins/winsetup/pkg/installer"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/menu"
	"github.com/windowsadmins/winsetup/pkg/nightlight"
	"github.com/windowsadmins/winsetup/pkg/provision"
	"github.com/windowsadmins/winsetup/pkg/regstore"
	"github.com/windowsadmins/winsetup/pkg/shell"
	"github.com/windowsadmins/winsetup/pkg/tweaks"
	"github.com/windowsadmins/winsetup/pkg/winget"
)

// app wires the provisioning components for one run.
type app struct {
	cfg       *config.Configuration
	store     regstore.Store
	runner    shell.Runner
	installer *installer.Installer
	prov      *provision.Provisioner
	summaries []provision.Summary
}

func newApp(cfg *config.Configuration, tweakNames []string) *app {
	var (
		store               = regstore.NewRegistry()
		runner shell.Runner = shell.Exec{}
	)
	if !cfg.CheckOnly {
		return assemble(cfg, store, runner, tweakNames)
	}
	a := assemble(cfg, regstore.DryRun{Base: store}, shell.DryRun{}, tweakNames)
	// winget list only reads state, so it runs for real.
	a.prov.Winget = winget.Client{Runner: a.runner, Lister: runner}
	return a
}

func assemble(cfg *config.Configuration, store regstore.Store, runner shell.Runner, tweakNames []string) *app {
	inst := &installer.Installer{
		Runner:  runner,
		Store:   store,
		Timeout: time.Duration(cfg.InstallerTimeoutMinutes) * time.Minute,
	}
	checker := blocking.Checker{}
	return &app{
		cfg:       cfg,
		store:     store,
		runner:    runner,
		installer: inst,
		prov: &provision.Provisioner{
			Configs:    cfg.ConfigFiles,
			Tweaks:     tweakNames,
			Downloader: download.New(),
			Installer:  inst,
			Checksums:  cfg.AppChecksums,
			Winget:     winget.Client{Runner: runner},
			Syncer: &configsync.Syncer{
				SyncRoot:  cfg.SyncRoot,
				BackupDir: cfg.BackupPath,
				Runner:    runner,
				Blocking:  checker,
				CheckOnly: cfg.CheckOnly,
			},
			Tweaker: &tweaks.Applier{
				Config:    cfg,
				Store:     store,
				Runner:    runner,
				Desktop:   tweaks.NewDesktop(),
				Features:  tweaks.WMIFeatures{},
				Processes: checker,
				CheckOnly: cfg.CheckOnly,
			},
			DownloadDir:   cfg.DownloadPath,
			KeepDownloads: cfg.KeepDownloads,
			CheckOnly:     cfg.CheckOnly,
		},
	}
}

// loadLists reads the application and winget lists. A list required by a
// selected phase must exist; in menu mode every list is optional.
func (a *app) loadLists(phases []string, interactive bool) error {
	selected := func(phase string) bool {
		return interactive || slices.Contains(phases, phase)
	}
	if selected(provision.PhaseApps) {
		apps, err := loadAppList(a.cfg.AppListPath())
		if err != nil && !interactive {
			return err
		}
		a.prov.Apps = apps
	}
	if selected(provision.PhaseWinget) {
		ids, err := winget.Load(a.cfg.WingetListPath())
		if err != nil {
			if !interactive {
				return err
			}
			logging.Warn("winget list unavailable", "error", err)
		}
		a.prov.Packages = ids
	}
	return nil
}

func loadAppList(path string) ([]applist.AppEntry, error) {
	apps, lineErrs, err := applist.Load(path)
	if err != nil {
		logging.Warn("Application list unavailable", "path", path, "error", err)
		return nil, err
	}
	for _, le := range lineErrs {
		logging.Warn("Skipping malformed application line", "path", path, "line", le.Line, "reason", le.Reason)
	}
	logging.Info("Loaded application list", "path", path, "apps", len(apps), "skipped", len(lineErrs))
	return apps, nil
}

func (a *app) failed() int {
	n := 0
	for _, s := range a.summaries {
		n += s.Failed
	}
	return n
}

// actions builds the interactive menu: one entry per phase, one per tweak,
// then diagnostics.
func (a *app) actions(console *logging.Console) []menu.Action {
	phase := func(name, desc string, fn func(context.Context) provision.Summary) menu.Action {
		return menu.Action{Name: name, Description: desc, Run: func(ctx context.Context) error {
			s := fn(ctx)
			a.summaries = append(a.summaries, s)
			printSummary(console, []provision.Summary{s})
			if s.Failed > 0 {
				return fmt.Errorf("%d of %d items failed", s.Failed, s.Succeeded+s.Failed+s.Skipped+s.Pending)
			}
			return nil
		}}
	}

	actions := []menu.Action{
		phase(provision.PhaseApps, "install applications from the app list", a.prov.InstallApps),
		phase(provision.PhaseWinget, "install winget packages", a.prov.InstallPackages),
		phase(provision.PhaseConfigs, "copy configuration from the sync root", a.prov.SyncConfigs),
		phase(provision.PhaseTweaks, "apply every tweak", func(ctx context.Context) provision.Summary {
			p := *a.prov
			p.Tweaks = nil
			return p.ApplyTweaks(ctx)
		}),
	}
	for _, t := range tweaks.All() {
		name := t.Name
		actions = append(actions, menu.Action{
			Name:        name,
			Description: t.Description,
			Run: func(ctx context.Context) error {
				return a.prov.Tweaker.Apply(ctx, name)
			},
		})
	}
	actions = append(actions,
		menu.Action{Name: "installed", Description: "list installed applications", Run: func(context.Context) error {
			apps, err := installer.InstalledApps(a.store)
			if err != nil {
				return err
			}
			for _, ra := range apps {
				console.Printf("%-50s %s", ra.Name, ra.Version)
			}
			return nil
		}},
		menu.Action{Name: "nightlight-status", Description: "show the stored Night Light schedule", Run: func(context.Context) error {
			return a.showNightLight(console)
		}},
		menu.Action{Name: "facts", Description: "show machine facts", Run: func(ctx context.Context) error {
			return printYAML(console, facts.Collect(ctx))
		}},
		menu.Action{Name: "config", Description: "show the effective configuration", Run: func(context.Context) error {
			return printYAML(console, a.cfg)
		}},
		menu.Action{Name: "logs", Description: "show the log directory", Run: func(context.Context) error {
			dir := logging.GetCurrentLogDir()
			if dir == "" {
				return fmt.Errorf("no log directory")
			}
			console.Printf("%s", filepath.Clean(dir))
			return nil
		}},
	)
	return actions
}

func (a *app) showNightLight(console *logging.Console) error {
	blob, err := a.store.GetBinary(regstore.CurrentUser, nightlight.RegistryPath, nightlight.ValueName)
	if err != nil {
		return fmt.Errorf("read Night Light settings: %w", err)
	}
	s, modified, err := nightlight.Decode(blob)
	if err != nil {
		return err
	}
	console.Printf("Night Light schedule enabled=%t %s-%s %dK (modified %s)",
		s.Enabled, s.Start, s.End, s.Temperature, modified.Format(time.RFC3339))
	return nil
}

func printYAML(console *logging.Console, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	console.Printf("%s", string(out))
	return nil
}
