// pkg/blocking/blocking.go - detecting applications that hold files open.

package blocking

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// Process is the part of a running process the matcher needs.
type Process struct {
	PID  int32
	Name string
	Exe  string
}

// Checker inspects and stops running processes. The zero value uses the
// live process table.
type Checker struct {
	// List overrides the process source, for tests.
	List func(ctx context.Context) ([]Process, error)
	// Kill overrides process termination, for tests.
	Kill func(ctx context.Context, pid int32) error
}

func (c Checker) list(ctx context.Context) ([]Process, error) {
	if c.List != nil {
		return c.List(ctx)
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		exe, _ := p.ExeWithContext(ctx)
		out = append(out, Process{PID: p.Pid, Name: name, Exe: exe})
	}
	return out, nil
}

func (c Checker) kill(ctx context.Context, pid int32) error {
	if c.Kill != nil {
		return c.Kill(ctx, pid)
	}
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}

// Matches reports whether p is the application appName. An absolute path
// matches the executable path, a name ending in .exe matches the process
// name, and a bare name matches with or without .exe.
func Matches(p Process, appName string) bool {
	want := strings.ToLower(strings.TrimSpace(appName))
	if want == "" {
		return false
	}
	name := strings.ToLower(p.Name)
	switch {
	case filepath.IsAbs(appName) || strings.HasPrefix(want, `c:\`) || strings.HasPrefix(want, "/"):
		return p.Exe != "" && strings.EqualFold(p.Exe, appName)
	case strings.HasSuffix(want, ".exe"):
		return name == want
	default:
		return name == want || name == want+".exe"
	}
}

// Running returns the entries of apps that have at least one running process.
func (c Checker) Running(ctx context.Context, apps []string) ([]string, error) {
	if len(apps) == 0 {
		return nil, nil
	}
	procs, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	var running []string
	for _, app := range apps {
		for _, p := range procs {
			if Matches(p, app) {
				logging.Debug("Found running application", "app", app, "pid", p.PID, "process", p.Name)
				running = append(running, app)
				break
			}
		}
	}
	return running, nil
}

// Terminate kills every process matching appName and returns how many were
// stopped.
func (c Checker) Terminate(ctx context.Context, appName string) (int, error) {
	procs, err := c.list(ctx)
	if err != nil {
		return 0, err
	}
	killed := 0
	var firstErr error
	for _, p := range procs {
		if !Matches(p, appName) {
			continue
		}
		if err := c.kill(ctx, p.PID); err != nil {
			logging.Warn("Failed to terminate process", "process", p.Name, "pid", p.PID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		killed++
	}
	if killed == 0 && firstErr != nil {
		return 0, fmt.Errorf("terminating %s: %w", appName, firstErr)
	}
	return killed, nil
}
