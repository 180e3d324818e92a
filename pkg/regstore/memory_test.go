package regstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTripsValueTypes(t *testing.T) {
	m := NewMemory()
	const key = `Software\WinSetup\Test`

	require.NoError(t, m.SetString(CurrentUser, key, "Name", "value"))
	require.NoError(t, m.set(CurrentUser, key, "Path", Value{Kind: KindExpandString, String: `%USERPROFILE%\x`}))
	require.NoError(t, m.SetDWord(CurrentUser, key, "Count", 7))
	require.NoError(t, m.set(CurrentUser, key, "List", Value{Kind: KindStrings, Strings: []string{"a", "b"}}))
	require.NoError(t, m.SetBinary(CurrentUser, key, "Blob", []byte{0x43, 0x42}))

	s, err := m.GetString(CurrentUser, key, "name")
	require.NoError(t, err)
	assert.Equal(t, "value", s)

	s, err = m.GetString(CurrentUser, key, "Path")
	require.NoError(t, err)
	assert.Equal(t, `%USERPROFILE%\x`, s)

	d, err := m.GetDWord(CurrentUser, `software\winsetup\test`, "Count")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), d)

	list, err := m.GetStrings(CurrentUser, key, "List")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	blob, err := m.GetBinary(CurrentUser, key, "Blob")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x43, 0x42}, blob)
}

func TestMemory_MissingValues(t *testing.T) {
	m := NewMemory()

	_, err := m.GetString(LocalMachine, `Software\Nope`, "x")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, m.SetDWord(LocalMachine, `Software\Yes`, "x", 1))
	_, err = m.GetString(LocalMachine, `Software\Yes`, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotExist)

	// Hives are separate.
	_, err = m.GetDWord(CurrentUser, `Software\Yes`, "x")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = m.GetDWord(LocalMachine, `Software\Yes`, "y")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestMemory_SubKeys(t *testing.T) {
	m := NewMemory()
	const root = `Software\Microsoft\Windows\CurrentVersion\Uninstall`
	require.NoError(t, m.SetString(LocalMachine, root+`\Git_is1`, "DisplayName", "Git"))
	require.NoError(t, m.SetString(LocalMachine, root+`\7-Zip`, "DisplayName", "7-Zip"))
	require.NoError(t, m.SetString(LocalMachine, root+`\7-Zip\Nested`, "x", "y"))

	keys, err := m.SubKeys(LocalMachine, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"7-zip", "git_is1"}, keys)

	keys, err = m.SubKeys(LocalMachine, `Software\Microsoft`)
	require.NoError(t, err)
	assert.Equal(t, []string{"windows"}, keys)

	_, err = m.SubKeys(CurrentUser, root)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestDryRun_DoesNotWrite(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetDWord(CurrentUser, `Control Panel\Desktop`, "LogPixels", 96))

	d := DryRun{Base: m}
	require.NoError(t, d.SetDWord(CurrentUser, `Control Panel\Desktop`, "LogPixels", 120))
	require.NoError(t, d.SetBinary(CurrentUser, `Software\X`, "Data", []byte{1}))

	v, err := d.GetDWord(CurrentUser, `Control Panel\Desktop`, "LogPixels")
	require.NoError(t, err)
	assert.Equal(t, uint32(96), v)

	_, ok := m.Value(CurrentUser, `Software\X`, "Data")
	assert.False(t, ok)
}

func TestKeyPath(t *testing.T) {
	assert.Equal(t, `HKCU\Control Panel\Desktop`, KeyPath(CurrentUser, `\Control Panel\Desktop\`))
	assert.Equal(t, `HKLM\Software`, KeyPath(LocalMachine, "Software"))
}
