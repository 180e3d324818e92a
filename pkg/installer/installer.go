// pkg/installer/installer.go - running downloaded installers silently.

package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/windowsadmins/winsetup/pkg/applist"
	"github.com/windowsadmins/winsetup/pkg/extract"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/regstore"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

// Windows Installer exit codes that still mean success.
const (
	exitRebootRequired  = 3010
	exitRebootInitiated = 1641
)

// DefaultTimeout bounds a single installer run.
const DefaultTimeout = 15 * time.Minute

// Installer runs installers of every supported type.
type Installer struct {
	Runner shell.Runner
	Store  regstore.Store
	// Timeout bounds each installer; zero uses DefaultTimeout.
	Timeout time.Duration
	// ProgramsDir receives zip applications; empty means %LOCALAPPDATA%\Programs.
	ProgramsDir string

	rebootRequired bool
}

// RebootRequired reports whether any installer asked for a restart.
func (i *Installer) RebootRequired() bool { return i.rebootRequired }

// systemTool returns the System32 path of a Windows tool, or the bare name
// when WINDIR is not set.
func systemTool(name string) string {
	if windir := os.Getenv("WINDIR"); windir != "" {
		return filepath.Join(windir, "System32", name)
	}
	return name
}

// Install runs the installer file downloaded for entry.
func (i *Installer) Install(ctx context.Context, entry applist.AppEntry, file string) error {
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Info("Installing application", "app", entry.Name, "type", entry.Type, "file", file)

	var (
		output string
		err    error
	)
	switch entry.Type {
	case applist.TypeMSI:
		output, err = i.runMSI(ctx, entry, file)
	case applist.TypeEXE:
		output, err = i.runEXE(ctx, entry, file)
	case applist.TypeMSIX:
		output, err = i.runMSIX(ctx, file)
	case applist.TypePS1:
		output, err = i.runPS1(ctx, entry, file)
	case applist.TypeZIP:
		err = i.installZip(entry, file)
	default:
		logging.Warn("Unknown installer type", "app", entry.Name, "type", entry.Type)
		return fmt.Errorf("unknown installer type: %s", entry.Type)
	}

	if err != nil {
		logging.Error("Installation failed", "app", entry.Name, "error", err)
		return fmt.Errorf("installing %s: %w", entry.Name, err)
	}
	if output = strings.TrimSpace(output); output != "" {
		logging.Debug("Installer output", "app", entry.Name, "output", output)
	}
	logging.Info("Successfully installed application", "app", entry.Name)
	return nil
}

// acceptReboot treats the restart exit codes as success.
func (i *Installer) acceptReboot(name string, res shell.Result, err error) (string, error) {
	switch shell.ExitCode(err) {
	case exitRebootRequired, exitRebootInitiated:
		logging.Warn("Installer requested a restart", "app", name, "exitCode", shell.ExitCode(err))
		i.rebootRequired = true
		return res.Output, nil
	}
	return res.Output, err
}

func (i *Installer) runMSI(ctx context.Context, entry applist.AppEntry, file string) (string, error) {
	args := append([]string{"/i", file, "/qn", "/norestart"}, entry.SilentArgs...)
	res, err := i.Runner.Run(ctx, systemTool("msiexec.exe"), args...)
	return i.acceptReboot(entry.Name, res, err)
}

func (i *Installer) runEXE(ctx context.Context, entry applist.AppEntry, file string) (string, error) {
	if v, err := extract.FileVersion(file); err == nil {
		logging.Debug("Installer file version", "app", entry.Name, "version", v)
	}
	res, err := i.Runner.Run(ctx, file, entry.SilentArgs...)
	return i.acceptReboot(entry.Name, res, err)
}

func (i *Installer) runMSIX(ctx context.Context, file string) (string, error) {
	name, args := shell.PowerShell("Add-AppxPackage -Path " + shell.QuotePS(file))
	res, err := i.Runner.Run(ctx, name, args...)
	return res.Output, err
}

func (i *Installer) runPS1(ctx context.Context, entry applist.AppEntry, file string) (string, error) {
	args := append([]string{"-NoLogo", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-File", file}, entry.SilentArgs...)
	res, err := i.Runner.Run(ctx, "powershell.exe", args...)
	return res.Output, err
}

func (i *Installer) programsDir() string {
	if i.ProgramsDir != "" {
		return i.ProgramsDir
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return filepath.Join(local, "Programs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Local", "Programs")
}

func (i *Installer) installZip(entry applist.AppEntry, file string) error {
	dest := filepath.Join(i.programsDir(), entry.Name)
	n, err := extract.Zip(file, dest)
	if err != nil {
		return err
	}
	logging.Info("Extracted portable application", "app", entry.Name, "destination", dest, "files", n)
	return nil
}
