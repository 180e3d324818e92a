// pkg/nightlight/nightlight.go - Night Light schedule settings blob.
//
// Windows keeps the Night Light configuration in the CloudStore as an opaque
// REG_BINARY value. The layout is a small tagged record:
//
//	43 42 01 00 0A 02 01 00             header
//	2A 06 <uvarint unix seconds>        last modified
//	2A 2B 0E <uvarint len> <settings>   nested settings record
//	00 00 00 00
//
// and the nested record:
//
//	43 42 01 00
//	02 01                               present only when the schedule is on
//	CA 14 [0E hour] [2E minute] 00      start; zero fields are omitted
//	CA 1E [0E hour] [2E minute] 00      end
//	CF 28 <zigzag uvarint kelvin>
//	CA 32 00 CA 3C 00 00
//
// Decode skips fields it does not know: C2 and CF fields carry a single
// varint, CA fields a run of byte pairs ending in 00.

package nightlight

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RegistryPath and ValueName locate the settings blob under HKCU.
const (
	RegistryPath = `Software\Microsoft\Windows\CurrentVersion\CloudStore\Store\DefaultAccount\Current\default$windows.data.bluelightreduction.settings\windows.data.bluelightreduction.settings`
	ValueName    = "Data"
)

// Colour temperature limits accepted by the Settings app.
const (
	MinTemperature     = 1200
	MaxTemperature     = 6500
	DefaultTemperature = 4000
)

var (
	header      = []byte{0x43, 0x42, 0x01, 0x00, 0x0A, 0x02, 0x01, 0x00}
	recordStart = []byte{0x43, 0x42, 0x01, 0x00}
	trailer     = []byte{0xCA, 0x32, 0x00, 0xCA, 0x3C, 0x00, 0x00}
	padding     = []byte{0x00, 0x00, 0x00, 0x00}
)

const (
	tagStart       = 0x14
	tagEnd         = 0x1E
	fieldHour      = 0x0E
	fieldMinute    = 0x2E
	clockMarker    = 0xCA
	temperatureTag = 0xCF
	varintMarker   = 0xC2
)

// ErrMalformed is returned by Decode for blobs that do not follow the layout.
var ErrMalformed = errors.New("malformed night light blob")

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	c := Clock{Hour: hour, Minute: minute}
	if err := c.validate(); err != nil {
		return Clock{}, err
	}
	return c, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("hour %d out of range 0-23", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("minute %d out of range 0-59", c.Minute)
	}
	return nil
}

// Settings is the user-visible Night Light schedule.
type Settings struct {
	Enabled     bool
	Start       Clock
	End         Clock
	Temperature int // kelvin
}

// Validate checks the ranges the Settings app enforces.
func (s Settings) Validate() error {
	if err := s.Start.validate(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := s.End.validate(); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %dK out of range %d-%d", s.Temperature, MinTemperature, MaxTemperature)
	}
	return nil
}

// Encode serialises s with modified as the last-modified timestamp.
func Encode(s Settings, modified time.Time) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ts := modified.Unix()
	if ts < 0 {
		return nil, fmt.Errorf("timestamp %s precedes the Unix epoch", modified)
	}

	inner := append([]byte(nil), recordStart...)
	if s.Enabled {
		inner = append(inner, 0x02, 0x01)
	}
	inner = appendClock(inner, tagStart, s.Start)
	inner = appendClock(inner, tagEnd, s.End)
	inner = append(inner, temperatureTag, 0x28)
	inner = binary.AppendUvarint(inner, zigzag(int64(s.Temperature)))
	inner = append(inner, trailer...)

	out := append([]byte(nil), header...)
	out = append(out, 0x2A, 0x06)
	out = binary.AppendUvarint(out, uint64(ts))
	out = append(out, 0x2A, 0x2B, 0x0E)
	out = binary.AppendUvarint(out, uint64(len(inner)))
	out = append(out, inner...)
	out = append(out, padding...)
	return out, nil
}

func appendClock(b []byte, tag byte, c Clock) []byte {
	b = append(b, clockMarker, tag)
	if c.Hour != 0 {
		b = append(b, fieldHour, byte(c.Hour))
	}
	if c.Minute != 0 {
		b = append(b, fieldMinute, byte(c.Minute))
	}
	return append(b, 0x00)
}

// Decode parses a blob written by Encode or by the Settings app.
func Decode(blob []byte) (Settings, time.Time, error) {
	r := &reader{b: blob}
	if !r.expect(header...) || !r.expect(0x2A, 0x06) {
		return Settings{}, time.Time{}, fmt.Errorf("%w: bad header", ErrMalformed)
	}
	ts, err := r.uvarint()
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	if !r.expect(0x2A, 0x2B, 0x0E) {
		return Settings{}, time.Time{}, fmt.Errorf("%w: missing settings record", ErrMalformed)
	}
	n, err := r.uvarint()
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	if n > uint64(len(r.b)-r.pos) {
		return Settings{}, time.Time{}, fmt.Errorf("%w: record length %d exceeds blob", ErrMalformed, n)
	}

	s, err := decodeRecord(r.b[r.pos : r.pos+int(n)])
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	return s, time.Unix(int64(ts), 0).UTC(), nil
}

func decodeRecord(b []byte) (Settings, error) {
	var s Settings
	r := &reader{b: b}
	if !r.expect(recordStart...) {
		return s, fmt.Errorf("%w: bad record header", ErrMalformed)
	}
	if err := r.skipUnknown([]byte{0x02, 0x01}, []byte{clockMarker, tagStart}); err != nil {
		return s, err
	}
	if r.expect(0x02, 0x01) {
		s.Enabled = true
	}

	var err error
	if err = r.skipUnknown([]byte{clockMarker, tagStart}); err != nil {
		return s, err
	}
	if s.Start, err = r.clock(tagStart); err != nil {
		return s, err
	}
	if err = r.skipUnknown([]byte{clockMarker, tagEnd}); err != nil {
		return s, err
	}
	if s.End, err = r.clock(tagEnd); err != nil {
		return s, err
	}
	if err = r.skipUnknown([]byte{temperatureTag, 0x28}); err != nil {
		return s, err
	}
	if !r.expect(temperatureTag, 0x28) {
		return s, fmt.Errorf("%w: missing temperature", ErrMalformed)
	}
	v, err := r.uvarint()
	if err != nil {
		return s, err
	}
	s.Temperature = int(unzigzag(v))
	return s, nil
}

type reader struct {
	b   []byte
	pos int
}

// expect consumes want if the input continues with it.
func (r *reader) expect(want ...byte) bool {
	if !bytes.HasPrefix(r.b[r.pos:], want) {
		return false
	}
	r.pos += len(want)
	return true
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrMalformed)
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n, err := DecodeVarint(r.b[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// skipUnknown consumes tagged fields until the input starts with one of
// known or with something that is not a skippable field.
func (r *reader) skipUnknown(known ...[]byte) error {
	for {
		rest := r.b[r.pos:]
		for _, k := range known {
			if bytes.HasPrefix(rest, k) {
				return nil
			}
		}
		if len(rest) < 2 {
			return nil
		}
		switch rest[0] {
		case varintMarker, temperatureTag:
			r.pos += 2
			if _, err := r.uvarint(); err != nil {
				return err
			}
		case clockMarker:
			r.pos += 2
			if err := r.skipPairs(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// skipPairs consumes field/value byte pairs up to and including the 00
// terminator.
func (r *reader) skipPairs() error {
	for {
		field, err := r.byte()
		if err != nil {
			return err
		}
		if field == 0x00 {
			return nil
		}
		if _, err := r.byte(); err != nil {
			return err
		}
	}
}

func (r *reader) clock(tag byte) (Clock, error) {
	var c Clock
	if !r.expect(clockMarker, tag) {
		return c, fmt.Errorf("%w: missing time field 0x%02X", ErrMalformed, tag)
	}
	for {
		field, err := r.byte()
		if err != nil {
			return c, err
		}
		switch field {
		case 0x00:
			return c, nil
		case fieldHour, fieldMinute:
			v, err := r.byte()
			if err != nil {
				return c, err
			}
			if field == fieldHour {
				c.Hour = int(v)
			} else {
				c.Minute = int(v)
			}
		default:
			return c, fmt.Errorf("%w: unknown time field 0x%02X", ErrMalformed, field)
		}
	}
}

// EncodeVarint returns v as LEB128: seven bits per byte, least significant
// group first, 0x80 set on every byte but the last.
func EncodeVarint(v uint64) []byte {
	return binary.AppendUvarint(nil, v)
}

// DecodeVarint reads a LEB128 value from the start of b and reports how many
// bytes it used.
func DecodeVarint(b []byte) (uint64, int, error) {
	v, n := binary.Uvarint(b)
	switch {
	case n == 0:
		return 0, 0, fmt.Errorf("%w: truncated varint", ErrMalformed)
	case n < 0:
		return 0, 0, fmt.Errorf("%w: varint overflows 64 bits", ErrMalformed)
	}
	return v, n, nil
}

func zigzag(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
