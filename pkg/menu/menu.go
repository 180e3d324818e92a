// pkg/menu/menu.go - interactive read-eval loop over named actions.

package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// Action is one menu entry.
type Action struct {
	Name        string
	Description string
	Run         func(ctx context.Context) error
}

const prompt = "winsetup> "

// Loop prints the numbered actions and runs the ones the user picks, by
// number or by name, until "quit", "exit", end of input or cancellation.
// A failing action is reported and the loop continues.
func Loop(ctx context.Context, in io.Reader, out io.Writer, actions []Action) error {
	printActions(out, actions)
	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, prompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-readErr
			}
			line = l
		}
		choice := strings.TrimSpace(line)
		switch strings.ToLower(choice) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printActions(out, actions)
			continue
		}

		action, ok := find(actions, choice)
		if !ok {
			fmt.Fprintf(out, "Unknown choice %q. Type help for the list of actions.\n", choice)
			logging.Warn("Unknown menu choice", "input", choice)
			continue
		}

		logging.Info("Running menu action", "action", action.Name)
		if err := action.Run(ctx); err != nil {
			fmt.Fprintf(out, "%s failed: %v\n", action.Name, err)
			logging.Warn("Menu action failed", "action", action.Name, "error", err)
			continue
		}
		fmt.Fprintf(out, "%s done.\n", action.Name)
	}
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. The goroutine stops sending once done is closed; a read
// already blocked on in ends with the process.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func find(actions []Action, choice string) (Action, bool) {
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(actions) {
			return actions[n-1], true
		}
		return Action{}, false
	}
	for _, a := range actions {
		if strings.EqualFold(a.Name, choice) {
			return a, true
		}
	}
	return Action{}, false
}

func printActions(out io.Writer, actions []Action) {
	fmt.Fprintln(out, "Available actions:")
	for i, a := range actions {
		fmt.Fprintf(out, "  %2d. %-16s %s\n", i+1, a.Name, a.Description)
	}
	fmt.Fprintln(out, "Enter a number or name, help to list actions, quit to exit.")
}
