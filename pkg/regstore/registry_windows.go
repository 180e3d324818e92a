//go:build windows

package regstore

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// Registry is the Store backed by the live Windows registry.
type Registry struct {
	// View adds registry.WOW64_64KEY or WOW64_32KEY to every access mask.
	View uint32
}

// NewRegistry returns a Store on the native registry view.
func NewRegistry() Store {
	return &Registry{}
}

func rootKey(h Hive) (registry.Key, error) {
	switch h {
	case CurrentUser:
		return registry.CURRENT_USER, nil
	case LocalMachine:
		return registry.LOCAL_MACHINE, nil
	default:
		return 0, fmt.Errorf("unsupported hive %v", h)
	}
}

func wrapErr(h Hive, path, name string, err error) error {
	if err == nil {
		return nil
	}
	loc := KeyPath(h, path)
	if name != "" {
		loc += `\` + name
	}
	if errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("%s: %w", loc, ErrNotExist)
	}
	return fmt.Errorf("%s: %w", loc, err)
}

func (r *Registry) open(h Hive, path string, access uint32) (registry.Key, error) {
	root, err := rootKey(h)
	if err != nil {
		return 0, err
	}
	k, err := registry.OpenKey(root, path, access|r.View)
	if err != nil {
		return 0, wrapErr(h, path, "", err)
	}
	return k, nil
}

func (r *Registry) create(h Hive, path string) (registry.Key, error) {
	root, err := rootKey(h)
	if err != nil {
		return 0, err
	}
	k, _, err := registry.CreateKey(root, path, registry.SET_VALUE|registry.QUERY_VALUE|r.View)
	if err != nil {
		return 0, wrapErr(h, path, "", err)
	}
	return k, nil
}

func (r *Registry) GetString(h Hive, path, name string) (string, error) {
	k, err := r.open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()
	val, _, err := k.GetStringValue(name)
	return val, wrapErr(h, path, name, err)
}

func (r *Registry) GetDWord(h Hive, path, name string) (uint32, error) {
	k, err := r.open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer k.Close()
	val, _, err := k.GetIntegerValue(name)
	return uint32(val), wrapErr(h, path, name, err)
}

func (r *Registry) GetStrings(h Hive, path, name string) ([]string, error) {
	k, err := r.open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	val, _, err := k.GetStringsValue(name)
	return val, wrapErr(h, path, name, err)
}

func (r *Registry) GetBinary(h Hive, path, name string) ([]byte, error) {
	k, err := r.open(h, path, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	val, _, err := k.GetBinaryValue(name)
	return val, wrapErr(h, path, name, err)
}

func (r *Registry) SubKeys(h Hive, path string) ([]string, error) {
	k, err := r.open(h, path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadSubKeyNames(0)
	return names, wrapErr(h, path, "", err)
}

func (r *Registry) SetString(h Hive, path, name, value string) error {
	k, err := r.create(h, path)
	if err != nil {
		return err
	}
	defer k.Close()
	return wrapErr(h, path, name, k.SetStringValue(name, value))
}

func (r *Registry) SetDWord(h Hive, path, name string, value uint32) error {
	k, err := r.create(h, path)
	if err != nil {
		return err
	}
	defer k.Close()
	return wrapErr(h, path, name, k.SetDWordValue(name, value))
}

func (r *Registry) SetBinary(h Hive, path, name string, value []byte) error {
	k, err := r.create(h, path)
	if err != nil {
		return err
	}
	defer k.Close()
	return wrapErr(h, path, name, k.SetBinaryValue(name, value))
}
