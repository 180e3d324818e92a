package tweaks

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/nightlight"
	"github.com/windowsadmins/winsetup/pkg/regstore"
)

func (a *Applier) applyNightLight(_ context.Context) error {
	nl := a.settings().NightLight
	if nl == nil {
		return ErrNotConfigured
	}
	start, err := nightlight.ParseClock(nl.Start)
	if err != nil {
		return fmt.Errorf("night light start: %w", err)
	}
	end, err := nightlight.ParseClock(nl.End)
	if err != nil {
		return fmt.Errorf("night light end: %w", err)
	}
	temperature := nl.Temperature
	if temperature == 0 {
		temperature = nightlight.DefaultTemperature
	}

	blob, err := nightlight.Encode(nightlight.Settings{
		Enabled:     nl.Enabled,
		Start:       start,
		End:         end,
		Temperature: temperature,
	}, a.now())
	if err != nil {
		return err
	}
	logging.Debug("Encoded night light settings", "bytes", len(blob), "start", start, "end", end, "kelvin", temperature)
	return a.Store.SetBinary(regstore.CurrentUser, nightlight.RegistryPath, nightlight.ValueName, blob)
}

func (a *Applier) applyStartLayout(ctx context.Context) error {
	layout := a.settings().StartLayout
	if layout == "" {
		return ErrNotConfigured
	}
	src := a.resolve(layout)
	if err := requireFile(src); err != nil {
		return err
	}
	if err := a.installFile(src, filepath.Join(a.startMenuDataDir(), "start2.bin")); err != nil {
		return fmt.Errorf("copying start layout: %w", err)
	}
	if a.CheckOnly || a.Processes == nil {
		return nil
	}
	// The start menu host reads start2.bin only when it starts.
	if _, err := a.Processes.Terminate(ctx, "StartMenuExperienceHost.exe"); err != nil {
		logging.Warn("Could not restart the start menu", "error", err)
	}
	return nil
}

func (a *Applier) applyPower(ctx context.Context) error {
	p := a.settings().Power
	if p == nil {
		return ErrNotConfigured
	}
	var commands [][]string
	if p.Plan != "" {
		commands = append(commands, []string{"/setactive", p.Plan})
	}
	timeouts := []struct {
		setting string
		minutes *int
	}{
		{"monitor-timeout-ac", p.MonitorTimeoutAC},
		{"monitor-timeout-dc", p.MonitorTimeoutDC},
		{"standby-timeout-ac", p.StandbyTimeoutAC},
		{"standby-timeout-dc", p.StandbyTimeoutDC},
	}
	for _, t := range timeouts {
		if t.minutes == nil {
			continue
		}
		if *t.minutes < 0 {
			return fmt.Errorf("%s: negative timeout %d", t.setting, *t.minutes)
		}
		commands = append(commands, []string{"/change", t.setting, strconv.Itoa(*t.minutes)})
	}
	if p.Hibernate != nil {
		state := "off"
		if *p.Hibernate {
			state = "on"
		}
		commands = append(commands, []string{"/hibernate", state})
	}
	if len(commands) == 0 {
		return ErrNotConfigured
	}
	for _, args := range commands {
		if _, err := a.Runner.Run(ctx, "powercfg.exe", args...); err != nil {
			return fmt.Errorf("powercfg %v: %w", args, err)
		}
	}
	return nil
}

// settingAreas are broadcast so running applications pick up theme and
// regional changes.
var settingAreas = []string{"ImmersiveColorSet", "intl", "Environment"}

func (a *Applier) applyRefresh(ctx context.Context) error {
	if a.CheckOnly {
		logging.Info("CheckOnly: would broadcast WM_SETTINGCHANGE", "areas", settingAreas)
		return nil
	}
	if a.Desktop != nil {
		for _, area := range settingAreas {
			if err := a.Desktop.BroadcastSettingChange(area); err != nil {
				logging.Warn("Settings broadcast failed", "area", area, "error", err)
			}
		}
	}
	if !a.settings().RestartExplorer || a.Processes == nil {
		return nil
	}
	n, err := a.Processes.Terminate(ctx, "explorer.exe")
	if err != nil {
		return fmt.Errorf("restarting explorer: %w", err)
	}
	// Winlogon restarts the shell while AutoRestartShell is set.
	logging.Info("Restarted Explorer", "processes", n)
	return nil
}
