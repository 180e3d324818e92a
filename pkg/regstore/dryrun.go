package regstore

import (
	"encoding/hex"

	"github.com/windowsadmins/winsetup/pkg/logging"
)

// DryRun reads through to Base and logs writes instead of applying them.
type DryRun struct {
	Base Store
}

func (d DryRun) GetString(h Hive, path, name string) (string, error) {
	return d.Base.GetString(h, path, name)
}

func (d DryRun) GetDWord(h Hive, path, name string) (uint32, error) {
	return d.Base.GetDWord(h, path, name)
}

func (d DryRun) GetStrings(h Hive, path, name string) ([]string, error) {
	return d.Base.GetStrings(h, path, name)
}

func (d DryRun) GetBinary(h Hive, path, name string) ([]byte, error) {
	return d.Base.GetBinary(h, path, name)
}

func (d DryRun) SubKeys(h Hive, path string) ([]string, error) {
	return d.Base.SubKeys(h, path)
}

func (d DryRun) SetString(h Hive, path, name, value string) error {
	logging.Info("CheckOnly: would set registry value", "key", KeyPath(h, path), "name", name, "type", "REG_SZ", "value", value)
	return nil
}

func (d DryRun) SetDWord(h Hive, path, name string, value uint32) error {
	logging.Info("CheckOnly: would set registry value", "key", KeyPath(h, path), "name", name, "type", "REG_DWORD", "value", value)
	return nil
}

func (d DryRun) SetBinary(h Hive, path, name string, value []byte) error {
	logging.Info("CheckOnly: would set registry value", "key", KeyPath(h, path), "name", name, "type", "REG_BINARY", "value", hex.EncodeToString(value))
	return nil
}
