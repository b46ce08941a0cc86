package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// PhoneDigits is the length of a stored phone number.
const PhoneDigits = 11

var (
	nonDigit   = regexp.MustCompile(`[^0-9]`)
	phoneExact = regexp.MustCompile(`^[0-9]{11}$`)
)

// ParseInt accepts integers and integral floats ("12", "12.0").
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

// ParseFloat parses a decimal number.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// ParseDate parses any common date or timestamp layout. Values without a
// zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a date: %q", s)
	}
	return t.UTC(), nil
}

// NormalizePhone keeps digits only. Longer numbers keep their last 11
// digits; shorter ones are treated as absent.
func NormalizePhone(s string) (string, bool) {
	d := nonDigit.ReplaceAllString(s, "")
	if len(d) < PhoneDigits {
		return "", false
	}
	return d[len(d)-PhoneDigits:], true
}

// ValidPhone reports whether s, spaces trimmed, is exactly 11 digits.
func ValidPhone(s string) bool {
	return phoneExact.MatchString(strings.TrimSpace(s))
}

// Fields coerces the raw strings of one row into typed record fields,
// collecting the reasons that make the row malformed.
type Fields struct {
	m       map[string]any
	reasons []string
}

func NewFields() *Fields {
	return &Fields{m: make(map[string]any)}
}

// Blank reports a missing value: empty, "nan" or "null".
func Blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null")
}

func (f *Fields) fail(name, format string, args ...any) {
	f.m[name] = nil
	f.reasons = append(f.reasons, name+": "+fmt.Sprintf(format, args...))
}

// absent stores nil for a blank value and reports whether it was blank.
// A blank required value makes the row malformed.
func (f *Fields) absent(name, raw string, required bool) bool {
	if !Blank(raw) {
		return false
	}
	if required {
		f.fail(name, "required value missing")
	} else {
		f.m[name] = nil
	}
	return true
}

// Int stores an int64. An unparseable optional value becomes nil.
func (f *Fields) Int(name, raw string, required bool) {
	if f.absent(name, raw, required) {
		return
	}
	v, err := ParseInt(raw)
	switch {
	case err == nil:
		f.m[name] = v
	case required:
		f.fail(name, "%v", err)
	default:
		f.m[name] = nil
	}
}

func (f *Fields) Float(name, raw string, required bool) {
	if f.absent(name, raw, required) {
		return
	}
	v, err := ParseFloat(raw)
	switch {
	case err == nil:
		f.m[name] = v
	case required:
		f.fail(name, "%v", err)
	default:
		f.m[name] = nil
	}
}

func (f *Fields) Date(name, raw string, required bool) {
	if f.absent(name, raw, required) {
		return
	}
	v, err := ParseDate(raw)
	switch {
	case err == nil:
		f.m[name] = v
	case required:
		f.fail(name, "%v", err)
	default:
		f.m[name] = nil
	}
}

// Text stores the trimmed value.
func (f *Fields) Text(name, raw string, required bool) {
	if f.absent(name, raw, required) {
		return
	}
	f.m[name] = strings.TrimSpace(raw)
}

// Enum stores the lowercased value after applying aliases; values outside
// allowed make the row malformed.
func (f *Fields) Enum(name, raw string, aliases map[string]string, allowed ...string) {
	if f.absent(name, raw, true) {
		return
	}
	v := strings.ToLower(strings.TrimSpace(raw))
	if a, ok := aliases[v]; ok {
		v = a
	}
	for _, ok := range allowed {
		if v == ok {
			f.m[name] = v
			return
		}
	}
	f.fail(name, "%q not in %v", raw, allowed)
}

// Phone stores a phone number. When strict, anything but exactly 11 digits
// makes the row malformed. Otherwise the number is normalized, and one that
// cannot be becomes nil.
func (f *Fields) Phone(name, raw string, strict bool) {
	if f.absent(name, raw, strict) {
		return
	}
	if strict {
		if !ValidPhone(raw) {
			f.fail(name, "%q is not a %d digit phone", raw, PhoneDigits)
			return
		}
		f.m[name] = strings.TrimSpace(raw)
		return
	}
	if p, ok := NormalizePhone(raw); ok {
		f.m[name] = p
	} else {
		f.m[name] = nil
	}
}

// Set stores a derived value.
func (f *Fields) Set(name string, v any) {
	f.m[name] = v
}

// Require marks the row malformed unless cond holds.
func (f *Fields) Require(cond bool, name, reason string) {
	if !cond {
		f.reasons = append(f.reasons, name+": "+reason)
	}
}

// Get returns a stored value.
func (f *Fields) Get(name string) any {
	return f.m[name]
}

// Map returns the typed fields.
func (f *Fields) Map() map[string]any {
	return f.m
}

// Err is nil for a well-formed row and wraps ErrMalformed otherwise.
func (f *Fields) Err() error {
	if len(f.reasons) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(f.reasons, "; "))
}
