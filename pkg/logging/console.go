package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

// Console prints human-facing, colored status lines. It does not write to
// the run directory; use the package-level functions for that.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	colors bool
}

// NewConsole returns a Console writing to stdout with colors enabled when the
// terminal supports them.
func NewConsole() *Console {
	return &Console{out: os.Stdout, colors: enableColors()}
}

// SetOutput changes the output destination and disables colors.
func (c *Console) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = w
	c.colors = false
}

func (c *Console) colorPrintf(color, format string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	if c.colors && color != "" {
		fmt.Fprintf(c.out, "%s[%s] %s%s\n", color, ts, msg, colorReset)
		return
	}
	fmt.Fprintf(c.out, "[%s] %s\n", ts, msg)
}

// Printf prints a regular message.
func (c *Console) Printf(format string, v ...interface{}) {
	c.colorPrintf("", format, v...)
}

// Success prints a success message in green.
func (c *Console) Success(format string, v ...interface{}) {
	c.colorPrintf(colorGreen, format, v...)
}

// Error prints an error message in red.
func (c *Console) Error(format string, v ...interface{}) {
	c.colorPrintf(colorRed, format, v...)
}

// Warning prints a warning message in yellow.
func (c *Console) Warning(format string, v ...interface{}) {
	c.colorPrintf(colorYellow, format, v...)
}

// Debug prints a debug message in blue.
func (c *Console) Debug(format string, v ...interface{}) {
	c.colorPrintf(colorBlue, format, v...)
}

// Fatal prints an error message in red, closes the run logs and exits.
func (c *Console) Fatal(format string, v ...interface{}) {
	c.Error(format, v...)
	CloseLogger()
	os.Exit(1)
}
