// pkg/scripts/prepost.go - running the user's preflight and postflight scripts.

package scripts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

// Default script names looked up in the sync root.
const (
	PreflightName  = "preflight.ps1"
	PostflightName = "postflight.ps1"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Run executes the PowerShell script at path and logs each line it prints.
// A missing script is not an error.
func Run(ctx context.Context, runner shell.Runner, path, displayName string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logging.Debug("Script not found", "script", displayName, "path", path)
		return nil
	}

	logging.Info("Running script", "script", displayName, "path", path)
	res, err := runner.Run(ctx, "powershell.exe",
		"-NoLogo", "-NoProfile", "-NonInteractive",
		"-ExecutionPolicy", "Bypass",
		"-File", path)

	for _, line := range OutputLines(res.Output) {
		logging.Info(line, "script", displayName)
	}

	if err != nil {
		logging.Error("Script failed", "script", displayName, "error", err)
		return fmt.Errorf("%s script error: %w", displayName, err)
	}
	logging.Info("Script completed successfully", "script", displayName)
	return nil
}

// OutputLines splits script output into non-empty lines with BOMs and ANSI
// colour sequences removed.
func OutputLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		txt := strings.TrimSpace(line)
		txt = strings.TrimPrefix(txt, "\ufeff")
		txt = strings.TrimSpace(ansiEscape.ReplaceAllString(txt, ""))
		if txt != "" {
			lines = append(lines, txt)
		}
	}
	return lines
}
