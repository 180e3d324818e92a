// pkg/applist/applist.go - the pipe-delimited application list.
//
// Each non-comment line reads
//
//	Name|URL|Type|SilentArgs[|MinVersion]
//
// SilentArgs may be empty or omitted entirely.

package applist

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/windowsadmins/winsetup/pkg/shell"
)

// InstallerType is the kind of file an entry downloads.
type InstallerType string

const (
	TypeMSI  InstallerType = "msi"
	TypeEXE  InstallerType = "exe"
	TypeMSIX InstallerType = "msix"
	TypePS1  InstallerType = "ps1"
	TypeZIP  InstallerType = "zip"
)

// Valid reports whether t is a supported installer type.
func (t InstallerType) Valid() bool {
	switch t {
	case TypeMSI, TypeEXE, TypeMSIX, TypePS1, TypeZIP:
		return true
	}
	return false
}

// AppEntry is one application to download and install.
type AppEntry struct {
	Name       string
	URL        string
	Type       InstallerType
	SilentArgs []string
	MinVersion string
	Line       int
}

// LineError describes a line that was skipped.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Parse reads entries from r. Malformed lines are reported and skipped;
// the returned entries keep file order.
func Parse(r io.Reader) ([]AppEntry, []LineError, error) {
	var (
		entries []AppEntry
		skipped []LineError
		lineNo  int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		entry, reason := parseLine(text)
		if reason != "" {
			skipped = append(skipped, LineError{Line: lineNo, Text: text, Reason: reason})
			continue
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, skipped, fmt.Errorf("reading app list: %w", err)
	}
	return entries, skipped, nil
}

func parseLine(text string) (AppEntry, string) {
	fields := strings.Split(text, "|")
	if len(fields) < 3 || len(fields) > 5 {
		return AppEntry{}, fmt.Sprintf("expected 3 to 5 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	entry := AppEntry{
		Name: fields[0],
		URL:  fields[1],
		Type: InstallerType(strings.ToLower(fields[2])),
	}
	if entry.Name == "" {
		return AppEntry{}, "empty name"
	}
	u, err := url.Parse(entry.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return AppEntry{}, "URL must be absolute http or https"
	}
	if !entry.Type.Valid() {
		return AppEntry{}, fmt.Sprintf("unknown installer type %q", fields[2])
	}
	if len(fields) >= 4 && fields[3] != "" {
		args, err := shell.SplitArgs(fields[3])
		if err != nil {
			return AppEntry{}, fmt.Sprintf("bad silent arguments: %v", err)
		}
		entry.SilentArgs = args
	}
	if len(fields) == 5 {
		entry.MinVersion = fields[4]
	}
	return entry, ""
}

// Load parses the list at path. A missing or unreadable file is an error;
// malformed lines are not.
func Load(path string) ([]AppEntry, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open app list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
