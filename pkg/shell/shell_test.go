package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test; Exec tests re-run the test binary
// with WINSETUP_HELPER set so the child behaves like a small program.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("WINSETUP_HELPER")
	if mode == "" {
		return
	}
	switch mode {
	case "ok":
		fmt.Fprint(os.Stdout, "hello")
		os.Exit(0)
	case "fail":
		fmt.Fprint(os.Stderr, "bad things")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	case "spawn", "spawn-exit":
		// Start a child that inherits stdout and outlives this process.
		child := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
		child.Env = append(os.Environ(), "WINSETUP_HELPER=sleep")
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			os.Exit(4)
		}
		fmt.Fprint(os.Stdout, "started")
		if mode == "spawn" {
			time.Sleep(10 * time.Second)
		}
		os.Exit(0)
	}
	os.Exit(2)
}

func helper(t *testing.T, mode string) (string, []string) {
	t.Helper()
	t.Setenv("WINSETUP_HELPER", mode)
	return os.Args[0], []string{"-test.run=^TestHelperProcess$"}
}

func TestExec_CapturesOutput(t *testing.T) {
	name, args := helper(t, "ok")
	res, err := Exec{}.Run(context.Background(), name, args...)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExec_NonZeroExit(t *testing.T) {
	name, args := helper(t, "fail")
	res, err := Exec{}.Run(context.Background(), name, args...)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Contains(t, err.Error(), "bad things")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, 3, ExitCode(err))
}

func TestExec_Timeout(t *testing.T) {
	name, args := helper(t, "sleep")
	start := time.Now()
	_, err := Exec{Timeout: 200 * time.Millisecond}.Run(context.Background(), name, args...)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExec_TimeoutWithLingeringChild(t *testing.T) {
	name, args := helper(t, "spawn")
	start := time.Now()
	_, err := Exec{Timeout: 200 * time.Millisecond, WaitDelay: 200 * time.Millisecond}.Run(context.Background(), name, args...)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExec_ExitWithLingeringChild(t *testing.T) {
	name, args := helper(t, "spawn-exit")
	start := time.Now()
	res, err := Exec{WaitDelay: 200 * time.Millisecond}.Run(context.Background(), name, args...)
	require.NoError(t, err)
	assert.Equal(t, "started", res.Output)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExec_MissingProgram(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "winsetup-definitely-not-a-program")
	require.Error(t, err)
	assert.Equal(t, -1, ExitCode(err))
}

func TestDryRun(t *testing.T) {
	res, err := DryRun{}.Run(context.Background(), "powercfg", "/hibernate", "off")
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "/S", want: []string{"/S"}},
		{in: "  /VERYSILENT   /NORESTART ", want: []string{"/VERYSILENT", "/NORESTART"}},
		{in: `/D="C:\Program Files\App"`, want: []string{`/D=C:\Program Files\App`}},
		{in: `"a b" c`, want: []string{"a b", "c"}},
		{in: `a\\b`, want: []string{`a\\b`}},
		{in: `a\"b`, want: []string{`a"b`}},
		{in: `"a\\" b`, want: []string{`a\`, "b"}},
		{in: `"say ""hi"""`, want: []string{`say "hi"`}},
		{in: `""`, want: []string{""}},
		{in: `INSTALLDIR=C:\Tools\`, want: []string{`INSTALLDIR=C:\Tools\`}},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := SplitArgs(`"unterminated`)
	assert.Error(t, err)
}

func TestQuotePS(t *testing.T) {
	assert.Equal(t, `'C:\it''s here'`, QuotePS(`C:\it's here`))
	name, args := PowerShell("Get-Date")
	assert.Equal(t, "powershell.exe", name)
	assert.Equal(t, "Get-Date", args[len(args)-1])
}
