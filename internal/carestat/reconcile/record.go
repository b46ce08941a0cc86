package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one candidate row of a batch. Fields hold typed values:
// int64, float64, string, bool, time.Time, or nil when the value is absent.
type Record struct {
	Line   int            `json:"line"`
	Fields map[string]any `json:"fields"`
}

// NewRecord builds a record for the given source line.
func NewRecord(line int, fields map[string]any) Record {
	if fields == nil {
		fields = make(map[string]any)
	}
	return Record{Line: line, Fields: fields}
}

// Get returns the value of a field, nil when absent.
func (r Record) Get(field string) any {
	return r.Fields[field]
}

// Clone returns a copy whose field map can be mutated independently.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Line: r.Line, Fields: fields}
}

// Key computes the canonical key of the given fields, in order.
func (r Record) Key(fields ...string) Key {
	vals := make([]any, len(fields))
	for i, f := range fields {
		vals[i] = r.Fields[f]
	}
	return KeyOf(vals...)
}

func (r Record) missing(fields []string) bool {
	for _, f := range fields {
		if r.Fields[f] == nil {
			return true
		}
	}
	return false
}

// Key is the canonical, comparable form of a single value or a tuple.
type Key string

const keySep = "\x1f"

// KeyOf canonicalizes values into a Key. Integers of any width compare
// equal; an integer and its decimal string do not.
func KeyOf(vals ...any) Key {
	if len(vals) == 1 {
		return Key(canonical(vals[0]))
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = canonical(v)
	}
	return Key(strings.Join(parts, keySep))
}

func canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case int64:
		return "i:" + strconv.FormatInt(t, 10)
	case int:
		return "i:" + strconv.Itoa(t)
	case int32:
		return "i:" + strconv.FormatInt(int64(t), 10)
	case string:
		return "s:" + t
	case float64:
		return "f:" + strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	case []any:
		return string(KeyOf(t...))
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	default:
		return 0, false
	}
}

// lessValue orders integers and floats numerically, times chronologically
// and everything else by canonical form.
func lessValue(a, b any) bool {
	if ta, ok := a.([]any); ok {
		if tb, ok := b.([]any); ok {
			for i := 0; i < len(ta) && i < len(tb); i++ {
				if lessValue(ta[i], tb[i]) {
					return true
				}
				if lessValue(tb[i], ta[i]) {
					return false
				}
			}
			return len(ta) < len(tb)
		}
	}
	if ia, ok := asInt64(a); ok {
		if ib, ok := asInt64(b); ok {
			return ia < ib
		}
	}
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			return fa < fb
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Before(tb)
		}
	}
	return canonical(a) < canonical(b)
}
