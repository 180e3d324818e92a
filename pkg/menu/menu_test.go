package menu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingActions(ran *[]string) []Action {
	mk := func(name string, err error) Action {
		return Action{
			Name:        name,
			Description: name + " things",
			Run: func(context.Context) error {
				*ran = append(*ran, name)
				return err
			},
		}
	}
	return []Action{
		mk("apps", nil),
		mk("winget", nil),
		mk("tweaks", errors.New("power failed")),
	}
}

func TestLoop_DispatchByNumberAndName(t *testing.T) {
	var ran []string
	var out bytes.Buffer
	in := strings.NewReader("1\nWINGET\n\n3\nquit\napps\n")

	require.NoError(t, Loop(context.Background(), in, &out, recordingActions(&ran)))
	assert.Equal(t, []string{"apps", "winget", "tweaks"}, ran)
	assert.Contains(t, out.String(), "apps done.")
	assert.Contains(t, out.String(), "tweaks failed: power failed")
}

func TestLoop_HelpAndUnknown(t *testing.T) {
	var ran []string
	var out bytes.Buffer
	in := strings.NewReader("help\n7\nfonts\nexit\n")

	require.NoError(t, Loop(context.Background(), in, &out, recordingActions(&ran)))
	assert.Empty(t, ran)
	assert.Equal(t, 2, strings.Count(out.String(), "Available actions:"))
	assert.Contains(t, out.String(), `Unknown choice "7"`)
	assert.Contains(t, out.String(), `Unknown choice "fonts"`)
	assert.Contains(t, out.String(), " 2. winget")
}

func TestLoop_EOF(t *testing.T) {
	var ran []string
	require.NoError(t, Loop(context.Background(), strings.NewReader("2"), &bytes.Buffer{}, recordingActions(&ran)))
	assert.Equal(t, []string{"winget"}, ran)
}

func TestLoop_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran []string
	err := Loop(ctx, strings.NewReader("1\n"), &bytes.Buffer{}, recordingActions(&ran))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
}

func TestLoop_CancelWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	errc := make(chan error, 1)
	go func() { errc <- Loop(ctx, pr, io.Discard, recordingActions(&ran)) }()

	_, err := pw.Write([]byte("1\n"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Loop did not return after cancellation")
	}
}
