package blocking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var table = []Process{
	{PID: 4, Name: "System"},
	{PID: 100, Name: "explorer.exe", Exe: `C:\Windows\explorer.exe`},
	{PID: 200, Name: "msedge.exe", Exe: `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`},
	{PID: 201, Name: "msedge.exe", Exe: `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`},
}

func fixed(procs []Process) func(context.Context) ([]Process, error) {
	return func(context.Context) ([]Process, error) { return procs, nil }
}

func TestMatches(t *testing.T) {
	edge := table[2]
	assert.True(t, Matches(edge, "msedge.exe"))
	assert.True(t, Matches(edge, "MSEDGE.EXE"))
	assert.True(t, Matches(edge, "msedge"))
	assert.True(t, Matches(edge, `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`))
	assert.False(t, Matches(edge, `C:\Other\msedge.exe`))
	assert.False(t, Matches(edge, "msedg"))
	assert.False(t, Matches(edge, ""))
	assert.False(t, Matches(Process{Name: "x.exe"}, `C:\x.exe`))
}

func TestRunning(t *testing.T) {
	c := Checker{List: fixed(table)}
	running, err := c.Running(context.Background(), []string{"msedge.exe", "WindowsTerminal.exe", "explorer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"msedge.exe", "explorer"}, running)

	running, err = c.Running(context.Background(), []string{"code.exe"})
	require.NoError(t, err)
	assert.Empty(t, running)

	running, err = c.Running(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestRunning_ListError(t *testing.T) {
	c := Checker{List: func(context.Context) ([]Process, error) { return nil, errors.New("denied") }}
	_, err := c.Running(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestTerminate(t *testing.T) {
	var killed []int32
	c := Checker{
		List: fixed(table),
		Kill: func(_ context.Context, pid int32) error {
			killed = append(killed, pid)
			return nil
		},
	}
	n, err := c.Terminate(context.Background(), "msedge.exe")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int32{200, 201}, killed)

	n, err = c.Terminate(context.Background(), "notepad.exe")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTerminate_KillFails(t *testing.T) {
	c := Checker{
		List: fixed(table),
		Kill: func(context.Context, int32) error { return errors.New("access denied") },
	}
	_, err := c.Terminate(context.Background(), "explorer.exe")
	assert.Error(t, err)
}
