package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	var console bytes.Buffer
	cfg := DefaultLoggerConfig(t.TempDir(), level)
	cfg.Console = &console
	l, err := newLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(l.closeFiles)
	return l, &console
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelDebug, ParseLevel("Debug"))
	assert.Equal(t, LevelInfo, ParseLevel("chatty"))
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelError, LevelFromVerbosity(0))
	assert.Equal(t, LevelWarn, LevelFromVerbosity(1))
	assert.Equal(t, LevelInfo, LevelFromVerbosity(2))
	assert.Equal(t, LevelDebug, LevelFromVerbosity(5))
}

func TestLogMessage(t *testing.T) {
	l, console := newTestLogger(t, LevelInfo)

	l.logMessage(LevelInfo, "Installed application", "app", "7-Zip", "error", errors.New("none"))
	l.logMessage(LevelDebug, "hidden")

	assert.Contains(t, console.String(), "INFO  Installed application app=7-Zip error=none")
	assert.NotContains(t, console.String(), "hidden")

	main, err := os.ReadFile(filepath.Join(l.logDir, "winsetup.log"))
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(main))

	f, err := os.Open(filepath.Join(l.logDir, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry LogEntry
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "Installed application", entry.Message)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "none", entry.Properties["error"])
	assert.Equal(t, l.config.SessionID, entry.SessionID)
	assert.False(t, scanner.Scan())

	y, err := os.ReadFile(filepath.Join(l.logDir, "winsetup.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(y), "---\n"))
}

func TestLogMessage_Multiline(t *testing.T) {
	l, console := newTestLogger(t, LevelDebug)
	l.logMessage(LevelWarn, "many", "a", 1, "b", 2, "c", 3, "d", 4, "e", 5)
	assert.Contains(t, console.String(), "\n        e: 5")
}

func TestRunDirectory(t *testing.T) {
	l, _ := newTestLogger(t, LevelInfo)
	assert.True(t, isRunDirName(filepath.Base(l.logDir)))
	assert.False(t, isRunDirName("2024-01-01"))
	assert.False(t, isRunDirName("not-a-run-dir-xyz"))
}

func TestPerformCleanup(t *testing.T) {
	l, _ := newTestLogger(t, LevelInfo)
	base := l.config.BaseDir

	old := time.Now().AddDate(0, 0, -90).Format("2006-01-02-150405")
	recent := time.Now().Add(-time.Hour).Format("2006-01-02-150405")
	for _, name := range []string{old, recent, "keep-me"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name), 0755))
	}

	l.performCleanup()
	assert.NoDirExists(t, filepath.Join(base, old))
	assert.DirExists(t, filepath.Join(base, recent))
	assert.DirExists(t, filepath.Join(base, "keep-me"))
	assert.DirExists(t, l.logDir)
}

func TestEndSession(t *testing.T) {
	l, _ := newTestLogger(t, LevelInfo)
	phases := []PhaseSummary{
		{Name: "apps", Succeeded: 2, Failed: 1, Failures: []string{"Editor: exit status 1603"}},
		{Name: "tweaks", Succeeded: 10, Skipped: 2},
	}
	require.NoError(t, l.endSession("completed_with_errors", phases, map[string]any{"hostname": "desk"}))

	data, err := os.ReadFile(filepath.Join(l.logDir, "summary.yaml"))
	require.NoError(t, err)
	var got SessionSummary
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "completed_with_errors", got.Status)
	assert.Equal(t, l.config.SessionID, got.SessionID)
	assert.Equal(t, phases, got.Phases)
	assert.Equal(t, "desk", got.Metadata["hostname"])
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := &Console{out: &out}
	c.Success("installed %d apps", 3)
	c.Warning("careful")
	assert.Contains(t, out.String(), "] installed 3 apps\n")
	assert.Contains(t, out.String(), "] careful\n")
	assert.NotContains(t, out.String(), "\x1b[")
}
