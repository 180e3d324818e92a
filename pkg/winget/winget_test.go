package winget

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/winsetup/pkg/shell"
	"github.com/windowsadmins/winsetup/pkg/shell/shelltest"
)

func TestParseList(t *testing.T) {
	input := "\ufeff# dev tools\n" +
		"Git.Git\n" +
		"  Microsoft.VisualStudioCode   # editor\n" +
		"\n" +
		"git.git\n" +
		"#Mozilla.Firefox\n" +
		"7zip.7zip\n"

	ids, err := ParseList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Git.Git", "Microsoft.VisualStudioCode", "7zip.7zip"}, ids)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winget.txt")
	require.NoError(t, os.WriteFile(path, []byte("Git.Git\r\nJetBrains.Toolbox\r\n"), 0644))

	ids, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Git.Git", "JetBrains.Toolbox"}, ids)

	_, err = Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestInstall_Arguments(t *testing.T) {
	rec := &shelltest.Recorder{}
	client := Client{Runner: rec}

	require.NoError(t, client.Install(context.Background(), "Git.Git"))
	assert.Equal(t, []string{
		"winget install --id Git.Git --exact --silent --accept-package-agreements --accept-source-agreements --disable-interactivity",
	}, rec.Lines())
}

func TestInstall_ExitCodes(t *testing.T) {
	cases := []struct {
		name      string
		code      int
		installed bool
	}{
		{"already installed", int(codeAlreadyInstalled), true},
		{"no applicable update", int(codeNoApplicableUpdate), true},
		{"not found", int(codeNoPackageFound), false},
		{"generic failure", 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &shelltest.Recorder{Handler: func(name string, _ []string) (shell.Result, error) {
				return shelltest.Fail(name, tc.code)
			}}
			err := Client{Runner: rec}.Install(context.Background(), "Some.Package")
			require.Error(t, err)
			assert.Equal(t, tc.installed, errors.Is(err, ErrAlreadyInstalled))
			assert.Contains(t, err.Error(), "Some.Package")
		})
	}
}

func TestIsInstalled(t *testing.T) {
	listing := "Name  Id       Version\n----------------------\nGit   Git.Git  2.45.1\n"
	rec := &shelltest.Recorder{Handler: func(_ string, args []string) (shell.Result, error) {
		if args[2] == "Git.Git" {
			return shell.Result{Output: listing}, nil
		}
		return shelltest.Fail("winget", int(codeNoPackageFound))
	}}
	client := Client{Runner: rec, Executable: "winget.exe"}

	ok, err := client.IsInstalled(context.Background(), "Git.Git")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.IsInstalled(context.Background(), "Missing.Package")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "winget.exe", rec.Calls()[0].Name)
}

func TestIsInstalled_LaunchFailure(t *testing.T) {
	rec := &shelltest.Recorder{Handler: func(string, []string) (shell.Result, error) {
		return shell.Result{ExitCode: -1}, errors.New("executable file not found")
	}}
	_, err := Client{Runner: rec}.IsInstalled(context.Background(), "Git.Git")
	assert.Error(t, err)
}

func TestIsInstalled_UsesLister(t *testing.T) {
	installs := &shelltest.Recorder{}
	lister := &shelltest.Recorder{Handler: func(string, []string) (shell.Result, error) {
		return shell.Result{Output: "Name  Id       Version\nGit   Git.Git  2.45.1\n"}, nil
	}}
	client := Client{Runner: installs, Lister: lister}

	ok, err := client.IsInstalled(context.Background(), "Git.Git")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, installs.Calls())
	require.Len(t, lister.Calls(), 1)
	assert.Equal(t, "list", lister.Calls()[0].Args[0])

	require.NoError(t, client.Install(context.Background(), "Git.Git"))
	assert.Len(t, installs.Calls(), 1)
	assert.Len(t, lister.Calls(), 1)
}
