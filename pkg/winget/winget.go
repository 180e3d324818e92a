// pkg/winget/winget.go - installs packages listed by winget identifier.

package winget

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

// Winget exit codes that mean there is nothing to do.
const (
	codeNoApplicableUpdate uint32 = 0x8A15002B
	codeAlreadyInstalled   uint32 = 0x8A150061
	codeNoPackageFound     uint32 = 0x8A150014
)

// ErrAlreadyInstalled is returned by Install when winget reports the package
// is present and current.
var ErrAlreadyInstalled = errors.New("package already installed")

// ParseList reads one package identifier per line. Comments start with '#'
// and may trail an identifier. Duplicates keep their first position.
func ParseList(r io.Reader) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		id := strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return ids, fmt.Errorf("reading winget list: %w", err)
	}
	return ids, nil
}

// Load reads the list at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open winget list: %w", err)
	}
	defer f.Close()
	return ParseList(f)
}

// Client drives the winget command line.
type Client struct {
	Runner shell.Runner
	// Lister runs the read-only "winget list" queries; nil uses Runner.
	// Check-only runs set it to a real runner while Runner only logs.
	Lister shell.Runner
	// Executable defaults to "winget".
	Executable string
}

func (c Client) exe() string {
	if c.Executable != "" {
		return c.Executable
	}
	return "winget"
}

// Install installs id silently, accepting agreements.
func (c Client) Install(ctx context.Context, id string) error {
	_, err := c.Runner.Run(ctx, c.exe(),
		"install", "--id", id, "--exact", "--silent",
		"--accept-package-agreements", "--accept-source-agreements",
		"--disable-interactivity")
	if err == nil {
		logging.Info("winget install succeeded", "id", id)
		return nil
	}
	switch uint32(shell.ExitCode(err)) {
	case codeNoApplicableUpdate, codeAlreadyInstalled:
		return fmt.Errorf("%s: %w", id, ErrAlreadyInstalled)
	case codeNoPackageFound:
		return fmt.Errorf("winget has no package with id %s: %w", id, err)
	}
	return fmt.Errorf("winget install %s: %w", id, err)
}

// IsInstalled reports whether winget lists id as installed.
func (c Client) IsInstalled(ctx context.Context, id string) (bool, error) {
	runner := c.Lister
	if runner == nil {
		runner = c.Runner
	}
	res, err := runner.Run(ctx, c.exe(),
		"list", "--id", id, "--exact", "--accept-source-agreements", "--disable-interactivity")
	if err != nil {
		if shell.ExitCode(err) >= 0 {
			// winget list exits non-zero when nothing matches.
			return false, nil
		}
		return false, fmt.Errorf("winget list %s: %w", id, err)
	}
	return strings.Contains(strings.ToLower(res.Output), strings.ToLower(id)), nil
}
