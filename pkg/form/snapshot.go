package form

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is an ordered mapping of field name to current value.
type Snapshot struct {
	order  []string
	values map[string]any
}

// NewSnapshot builds a snapshot from values, normalised against schema: every
// schema field receives a defined value and unknown keys are dropped.
func NewSnapshot(schema Schema, values map[string]any) Snapshot {
	snap := Snapshot{
		order:  schema.Names(),
		values: make(map[string]any, len(schema.fields)),
	}
	for _, field := range schema.fields {
		value, ok := values[field.Name]
		if !ok || value == nil {
			value = field.zero()
		}
		snap.values[field.Name] = value
	}
	return snap
}

// Fields returns field names in schema order.
func (s Snapshot) Fields() []string {
	return append([]string(nil), s.order...)
}

// Len reports the number of fields.
func (s Snapshot) Len() int {
	return len(s.order)
}

// Get returns the raw value for field.
func (s Snapshot) Get(field string) (any, bool) {
	if s.values == nil {
		return nil, false
	}
	v, ok := s.values[field]
	return v, ok
}

// String returns the value for field rendered as a string. Dates use DateLayout.
func (s Snapshot) String(field string) string {
	v, ok := s.Get(field)
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case time.Time:
		return FormatDate(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Trimmed is String with surrounding whitespace removed.
func (s Snapshot) Trimmed(field string) string {
	return strings.TrimSpace(s.String(field))
}

// Bool returns the boolean value for field; non-boolean values report false.
func (s Snapshot) Bool(field string) bool {
	v, _ := s.Get(field)
	b, _ := v.(bool)
	return b
}

// Map returns a copy of the values keyed by field name.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// With returns a copy of s with field set to value. Other fields are untouched.
func (s Snapshot) With(field string, value any) Snapshot {
	next := Snapshot{
		order:  s.order,
		values: s.Map(),
	}
	next.values[field] = value
	return next
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		order:  append([]string(nil), s.order...),
		values: s.Map(),
	}
}
