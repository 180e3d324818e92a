// pkg/regstore/store.go - a narrow view of the Windows registry.
//
// Tweaks, configuration and install detection only need to read and write a
// handful of value types, so they depend on Store rather than on the
// registry package directly. Registry is the real implementation; Memory
// backs the tests and the check-only dry runs.

package regstore

import (
	"errors"
	"fmt"
	"strings"
)

// Hive names a registry root key.
type Hive int

const (
	CurrentUser Hive = iota
	LocalMachine
)

// String returns the short PowerShell-style name of the hive.
func (h Hive) String() string {
	switch h {
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	default:
		return fmt.Sprintf("Hive(%d)", int(h))
	}
}

// ErrNotExist is returned when a key or value is missing.
var ErrNotExist = errors.New("registry key or value does not exist")

// Store reads and writes registry values. Set methods create missing keys.
type Store interface {
	GetString(h Hive, path, name string) (string, error)
	GetDWord(h Hive, path, name string) (uint32, error)
	GetStrings(h Hive, path, name string) ([]string, error)
	GetBinary(h Hive, path, name string) ([]byte, error)
	SubKeys(h Hive, path string) ([]string, error)

	SetString(h Hive, path, name, value string) error
	SetDWord(h Hive, path, name string, value uint32) error
	SetBinary(h Hive, path, name string, value []byte) error
}

// KeyPath renders hive and path as "HKCU\path" for log output.
func KeyPath(h Hive, path string) string {
	return h.String() + `\` + strings.Trim(path, `\`)
}
