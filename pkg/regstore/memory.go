package regstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the registry type of a stored value.
type Kind int

const (
	KindString Kind = iota + 1
	KindExpandString
	KindDWord
	KindStrings
	KindBinary
)

// Value is one entry held by Memory.
type Value struct {
	Kind    Kind
	String  string
	DWord   uint32
	Strings []string
	Binary  []byte
}

// Memory is an in-process Store. Key paths are case-insensitive like the
// real registry.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]map[string]Value
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]map[string]Value)}
}

func memKey(h Hive, path string) string {
	return strings.ToLower(KeyPath(h, path))
}

// Value returns the raw stored value, for assertions.
func (m *Memory) Value(h Hive, path, name string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vals, ok := m.keys[memKey(h, path)]
	if !ok {
		return Value{}, false
	}
	v, ok := vals[strings.ToLower(name)]
	return v, ok
}

func (m *Memory) get(h Hive, path, name string, kinds ...Kind) (Value, error) {
	v, ok := m.Value(h, path, name)
	if !ok {
		return Value{}, fmt.Errorf("%s\\%s: %w", KeyPath(h, path), name, ErrNotExist)
	}
	for _, k := range kinds {
		if v.Kind == k {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("%s\\%s: unexpected value type %d", KeyPath(h, path), name, v.Kind)
}

func (m *Memory) set(h Hive, path, name string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(h, path)
	// Create every parent so SubKeys sees intermediate keys.
	parts := strings.Split(strings.Trim(path, `\`), `\`)
	for i := 1; i <= len(parts); i++ {
		parent := memKey(h, strings.Join(parts[:i], `\`))
		if _, ok := m.keys[parent]; !ok {
			m.keys[parent] = make(map[string]Value)
		}
	}
	m.keys[key][strings.ToLower(name)] = v
	return nil
}

func (m *Memory) GetString(h Hive, path, name string) (string, error) {
	v, err := m.get(h, path, name, KindString, KindExpandString)
	return v.String, err
}

func (m *Memory) GetDWord(h Hive, path, name string) (uint32, error) {
	v, err := m.get(h, path, name, KindDWord)
	return v.DWord, err
}

func (m *Memory) GetStrings(h Hive, path, name string) ([]string, error) {
	v, err := m.get(h, path, name, KindStrings)
	return v.Strings, err
}

func (m *Memory) GetBinary(h Hive, path, name string) ([]byte, error) {
	v, err := m.get(h, path, name, KindBinary)
	return v.Binary, err
}

// SubKeys lists the direct children of path, sorted.
func (m *Memory) SubKeys(h Hive, path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := memKey(h, path)
	if _, ok := m.keys[prefix]; !ok {
		return nil, fmt.Errorf("%s: %w", KeyPath(h, path), ErrNotExist)
	}
	prefix += `\`
	seen := make(map[string]bool)
	var out []string
	for k := range m.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		child := strings.SplitN(k[len(prefix):], `\`, 2)[0]
		if !seen[child] {
			seen[child] = true
			out = append(out, child)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) SetString(h Hive, path, name, value string) error {
	return m.set(h, path, name, Value{Kind: KindString, String: value})
}

func (m *Memory) SetDWord(h Hive, path, name string, value uint32) error {
	return m.set(h, path, name, Value{Kind: KindDWord, DWord: value})
}

func (m *Memory) SetBinary(h Hive, path, name string, value []byte) error {
	return m.set(h, path, name, Value{Kind: KindBinary, Binary: append([]byte(nil), value...)})
}
