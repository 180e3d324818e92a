// pkg/shell/shell.go - running external programs.

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// Result is the outcome of a finished command.
type Result struct {
	Output   string
	ExitCode int
}

// Runner starts a program and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += " | stderr: " + s
	}
	return msg
}

// ExitCode extracts the exit code carried by err, or -1 when err did not
// come from a finished process.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}
	return -1
}

// Exec runs commands with os/exec and a hidden console window.
type Exec struct {
	// Timeout bounds each command; zero means no limit beyond ctx.
	Timeout time.Duration
	// Dir is the working directory; empty means the current one.
	Dir string
	// WaitDelay bounds the wait for output pipes held open by child
	// processes once the command exits or is cancelled; zero uses
	// DefaultWaitDelay.
	WaitDelay time.Duration
}

// DefaultWaitDelay is the pipe drain limit used when Exec.WaitDelay is zero.
const DefaultWaitDelay = 5 * time.Second

// Run executes name with args and captures stdout. A non-zero exit is
// returned as *ExitError together with the captured Result.
func (e Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("Running command", "command", name, "args", strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	res := Result{Output: stdout.String()}

	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil {
		// The command exited cleanly but a child it started still holds the
		// output pipes.
		logging.Debug("Command left child processes running", "command", name)
		err = nil
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		switch {
		case ctx.Err() != nil:
			return res, fmt.Errorf("command %s aborted: %w", name, ctx.Err())
		case exitErr != nil:
			return res, &ExitError{Name: name, ExitCode: res.ExitCode, Stderr: stderr.String()}
		}
		return res, fmt.Errorf("command execution failed: %w", err)
	}
	logging.Debug("Command finished", "command", name, "duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// DryRun logs commands instead of running them and reports success.
type DryRun struct{}

func (DryRun) Run(_ context.Context, name string, args ...string) (Result, error) {
	logging.Info("CheckOnly: would run command", "command", name, "args", strings.Join(args, " "))
	return Result{}, nil
}

// PowerShell builds the argument list for running a PowerShell command
// non-interactively.
func PowerShell(command string) (string, []string) {
	return "powershell.exe", []string{"-NoLogo", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", command}
}

// QuotePS quotes s as a single-quoted PowerShell string literal.
func QuotePS(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
