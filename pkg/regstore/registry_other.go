//go:build !windows

package regstore

import "errors"

// ErrUnsupported is returned by every method of the registry Store on
// platforms without a registry.
var ErrUnsupported = errors.New("registry is only available on Windows")

type unsupported struct{}

// NewRegistry returns a Store that fails every call.
func NewRegistry() Store {
	return unsupported{}
}

func (unsupported) GetString(Hive, string, string) (string, error)    { return "", ErrUnsupported }
func (unsupported) GetDWord(Hive, string, string) (uint32, error)     { return 0, ErrUnsupported }
func (unsupported) GetStrings(Hive, string, string) ([]string, error) { return nil, ErrUnsupported }
func (unsupported) GetBinary(Hive, string, string) ([]byte, error)    { return nil, ErrUnsupported }
func (unsupported) SubKeys(Hive, string) ([]string, error)            { return nil, ErrUnsupported }
func (unsupported) SetString(Hive, string, string, string) error      { return ErrUnsupported }
func (unsupported) SetDWord(Hive, string, string, uint32) error       { return ErrUnsupported }
func (unsupported) SetBinary(Hive, string, string, []byte) error      { return ErrUnsupported }
