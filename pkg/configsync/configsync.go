// pkg/configsync/configsync.go - copying personal configuration from the sync root.

package configsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/config"
	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/pathutil"
	"github.com/windowsadmins/winsetup/pkg/shell"
)

var (
	// ErrBlocked is returned while an application that owns the destination
	// is running.
	ErrBlocked = errors.New("blocking application running")
	// ErrSourceMissing is returned when the sync root has no copy of the item.
	ErrSourceMissing = errors.New("source not found in sync root")
)

// RunningChecker reports which of apps are running.
type RunningChecker interface {
	Running(ctx context.Context, apps []string) ([]string, error)
}

// Syncer copies FileMappings from SyncRoot into place.
type Syncer struct {
	SyncRoot  string
	BackupDir string
	Runner    shell.Runner
	Blocking  RunningChecker
	CheckOnly bool
}

// localPath converts the backslash separators used in configuration files.
func localPath(p string) string {
	return strings.ReplaceAll(p, `\`, string(filepath.Separator))
}

// Sync copies one mapping. An existing destination is moved into BackupDir
// first, under a name that does not collide with earlier backups.
func (s *Syncer) Sync(ctx context.Context, m config.FileMapping) error {
	src := filepath.Join(s.SyncRoot, localPath(m.Source))
	dest := localPath(pathutil.ExpandWindowsEnv(m.Destination))

	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %s: %w", m.Name, src, ErrSourceMissing)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", m.Name, err)
	}
	if info.IsDir() != m.Directory {
		return fmt.Errorf("%s: %s: directory=%t does not match source", m.Name, src, m.Directory)
	}

	if s.Blocking != nil && len(m.BlockingApps) > 0 {
		running, err := s.Blocking.Running(ctx, m.BlockingApps)
		if err != nil {
			logging.Warn("Could not check blocking applications", "item", m.Name, "error", err)
		}
		if len(running) > 0 {
			return fmt.Errorf("%s: close %s first: %w", m.Name, strings.Join(running, ", "), ErrBlocked)
		}
	}

	if s.CheckOnly {
		logging.Info("CheckOnly: would copy configuration", "item", m.Name, "source", src, "destination", dest)
		return nil
	}

	if _, err := os.Lstat(dest); err == nil {
		backup, err := s.backup(dest)
		if err != nil {
			return fmt.Errorf("%s: backing up %s: %w", m.Name, dest, err)
		}
		logging.Info("Moved existing configuration aside", "item", m.Name, "backup", backup)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%s: %w", m.Name, err)
	}
	if m.Directory {
		err = copyTree(src, dest)
	} else {
		_, err = copyFile(src, dest)
	}
	if err != nil {
		return fmt.Errorf("%s: copying %s: %w", m.Name, src, err)
	}

	if m.PrivateKeys {
		if err := s.restrictKeys(ctx, dest); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	logging.Info("Copied configuration", "item", m.Name, "destination", dest)
	return nil
}

// backup moves dest into BackupDir and returns the new location.
func (s *Syncer) backup(dest string) (string, error) {
	if err := os.MkdirAll(s.BackupDir, 0755); err != nil {
		return "", err
	}
	target, err := pathutil.UniquePath(filepath.Join(s.BackupDir, filepath.Base(dest)))
	if err != nil {
		return "", err
	}
	if err := move(dest, target); err != nil {
		return "", err
	}
	return target, nil
}

// PrivateKeyFiles lists the files under dir that look like SSH private keys:
// id_* without a .pub extension.
func PrivateKeyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "id_") || strings.EqualFold(filepath.Ext(name), ".pub") {
			continue
		}
		keys = append(keys, filepath.Join(dir, name))
	}
	return keys, nil
}

// restrictKeys limits private keys to the current user. OpenSSH on Windows
// refuses keys readable by other accounts.
func (s *Syncer) restrictKeys(ctx context.Context, dir string) error {
	keys, err := PrivateKeyFiles(dir)
	if err != nil {
		return err
	}
	account := currentAccount()
	for _, key := range keys {
		if err := os.Chmod(key, 0600); err != nil {
			logging.Warn("Failed to chmod private key", "file", key, "error", err)
		}
		if s.Runner == nil {
			continue
		}
		if _, err := s.Runner.Run(ctx, "icacls", key, "/inheritance:r", "/grant:r", account+":F"); err != nil {
			return fmt.Errorf("restricting %s: %w", key, err)
		}
		logging.Debug("Restricted private key permissions", "file", key, "account", account)
	}
	return nil
}

func currentAccount() string {
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "%USERNAME%"
}
