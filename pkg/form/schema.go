package form

import (
	"strings"
	"time"
)

// FieldKind identifies the value type a field carries.
type FieldKind string

const (
	KindText FieldKind = "text"
	KindDate FieldKind = "date"
	KindTime FieldKind = "time"
	KindBool FieldKind = "bool"
	KindEnum FieldKind = "enum"
)

// Field describes a single schema entry.
type Field struct {
	Name    string
	Label   string
	Kind    FieldKind
	Options []string
	Default any
}

// Schema is the ordered set of fields a form manages.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema; fields with empty or duplicate names are skipped.
func NewSchema(fields ...Field) Schema {
	s := Schema{index: make(map[string]int, len(fields))}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		if _, exists := s.index[name]; exists {
			continue
		}
		field.Name = name
		if field.Kind == "" {
			field.Kind = KindText
		}
		field.Options = append([]string(nil), field.Options...)
		s.index[name] = len(s.fields)
		s.fields = append(s.fields, field)
	}
	return s
}

// Fields returns the schema fields in declared order.
func (s Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Names returns the field names in declared order.
func (s Schema) Names() []string {
	out := make([]string, 0, len(s.fields))
	for _, field := range s.fields {
		out = append(out, field.Name)
	}
	return out
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	idx, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

// Has reports whether name is part of the schema.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (f Field) zero() any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case KindBool:
		return false
	case KindEnum:
		if len(f.Options) > 0 {
			return f.Options[0]
		}
		return ""
	default:
		return ""
	}
}

// Wire formats used by date and time inputs.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// FormatDate renders t using DateLayout; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
