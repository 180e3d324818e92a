package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/winsetup/pkg/shell"
	"github.com/windowsadmins/winsetup/pkg/shell/shelltest"
)

func TestRun_MissingScriptIsSkipped(t *testing.T) {
	rec := &shelltest.Recorder{}
	require.NoError(t, Run(context.Background(), rec, filepath.Join(t.TempDir(), PreflightName), "preflight"))
	require.NoError(t, Run(context.Background(), rec, "", "postflight"))
	assert.Empty(t, rec.Calls())
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), PreflightName)
	require.NoError(t, os.WriteFile(path, []byte("Write-Host hi"), 0644))

	rec := &shelltest.Recorder{Handler: func(string, []string) (shell.Result, error) {
		return shell.Result{Output: "hi\r\n"}, nil
	}}
	require.NoError(t, Run(context.Background(), rec, path, "preflight"))
	assert.Equal(t, []string{
		"powershell.exe -NoLogo -NoProfile -NonInteractive -ExecutionPolicy Bypass -File " + path,
	}, rec.Lines())
}

func TestRun_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), PostflightName)
	require.NoError(t, os.WriteFile(path, []byte("exit 2"), 0644))

	rec := &shelltest.Recorder{Handler: func(name string, _ []string) (shell.Result, error) {
		return shelltest.Fail(name, 2)
	}}
	err := Run(context.Background(), rec, path, "postflight")
	require.Error(t, err)
	assert.Equal(t, 2, shell.ExitCode(err))
}

func TestOutputLines(t *testing.T) {
	out := "\ufeffStarting\r\n\x1b[32mgreen\x1b[0m\n\n   \nDone  \n"
	assert.Equal(t, []string{"Starting", "green", "Done"}, OutputLines(out))
	assert.Empty(t, OutputLines(""))
}
