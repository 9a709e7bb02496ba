package form

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrUnknownField is returned when Set targets a field outside the schema.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrClosed is returned by Set once the store has been torn down.
	ErrClosed = errors.New("form: store closed")
)

// Feedback is the banner state rendered next to a form.
type Feedback struct {
	Errors  []string
	Success string
	Hint    string
}

// Empty reports whether there is nothing to render.
func (f Feedback) Empty() bool {
	return len(f.Errors) == 0 && f.Success == "" && f.Hint == ""
}

// Text joins the first error with its hint, matching how a single-line error
// banner is displayed.
func (f Feedback) Text() string {
	if len(f.Errors) == 0 {
		return f.Success
	}
	if f.Hint == "" {
		return f.Errors[0]
	}
	return f.Errors[0] + " " + f.Hint
}

// Event is delivered to subscribers after every change.
type Event struct {
	Kind     EventKind
	Field    string
	Snapshot Snapshot
	Feedback Feedback
}

// EventKind names the change that produced an Event.
type EventKind string

const (
	EventFieldSet EventKind = "field_set"
	EventReset    EventKind = "reset"
	EventFeedback EventKind = "feedback"
)

// Listener receives store events.
type Listener func(Event)

// Store holds the mutable snapshot and feedback of one form controller.
type Store struct {
	mu        sync.RWMutex
	schema    Schema
	snapshot  Snapshot
	feedback  Feedback
	closed    bool
	listeners []Listener
}

// NewStore seeds a store with values normalised against schema.
func NewStore(schema Schema, values map[string]any) *Store {
	return &Store{
		schema:   schema,
		snapshot: NewSnapshot(schema, values),
	}
}

// Schema returns the schema the store was built with.
func (s *Store) Schema() Schema {
	if s == nil {
		return Schema{}
	}
	return s.schema
}

// Snapshot returns a copy of the current values.
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

// Feedback returns the current banner state.
func (s *Store) Feedback() Feedback {
	if s == nil {
		return Feedback{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFeedback(s.feedback)
}

// Set updates one field and clears any displayed feedback. No range or shape
// checks happen here.
func (s *Store) Set(field string, value any) error {
	if s == nil {
		return ErrClosed
	}
	field = strings.TrimSpace(field)
	if !s.schema.Has(field) {
		return ErrUnknownField
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if value == nil {
		f, _ := s.schema.Field(field)
		value = f.zero()
	}
	s.snapshot = s.snapshot.With(field, value)
	s.feedback = Feedback{}
	evt := s.eventLocked(EventFieldSet, field)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, evt)
	return nil
}

// Assign writes several fields in one step without clearing feedback. It is
// used for values loaded from outside the user's own edits, such as resolved
// coordinates.
func (s *Store) Assign(values map[string]any) error {
	if s == nil {
		return ErrClosed
	}
	for field := range values {
		if !s.schema.Has(field) {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := s.snapshot
	for _, field := range s.schema.Names() {
		value, ok := values[field]
		if !ok {
			continue
		}
		if value == nil {
			f, _ := s.schema.Field(field)
			value = f.zero()
		}
		next = next.With(field, value)
	}
	s.snapshot = next
	evt := s.eventLocked(EventReset, "")
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, evt)
	return nil
}

// Reset replaces the whole snapshot atomically. Feedback is preserved so a
// refresh after a successful submission keeps its success banner.
func (s *Store) Reset(values map[string]any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.snapshot = NewSnapshot(s.schema, values)
	evt := s.eventLocked(EventReset, "")
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, evt)
}

// SetErrors replaces the error banner and hint, clearing any success message.
func (s *Store) SetErrors(hint string, messages ...string) {
	s.setFeedback(Feedback{Errors: compactMessages(messages), Hint: strings.TrimSpace(hint)})
}

// SetSuccess shows a success banner, clearing errors.
func (s *Store) SetSuccess(message string) {
	s.setFeedback(Feedback{Success: strings.TrimSpace(message)})
}

// ClearFeedback removes every banner.
func (s *Store) ClearFeedback() {
	s.setFeedback(Feedback{})
}

func (s *Store) setFeedback(fb Feedback) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.feedback = fb
	evt := s.eventLocked(EventFeedback, "")
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, evt)
}

// Subscribe registers fn for change events and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// Close tears the store down. Later mutations are ignored and listeners are
// dropped.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) eventLocked(kind EventKind, field string) Event {
	return Event{
		Kind:     kind,
		Field:    field,
		Snapshot: s.snapshot.clone(),
		Feedback: cloneFeedback(s.feedback),
	}
}

func (s *Store) listenersLocked() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	return append([]Listener(nil), s.listeners...)
}

func notify(listeners []Listener, evt Event) {
	for _, fn := range listeners {
		if fn != nil {
			fn(evt)
		}
	}
}

func cloneFeedback(fb Feedback) Feedback {
	fb.Errors = append([]string(nil), fb.Errors...)
	return fb
}

// compactMessages trims whitespace and removes duplicates while preserving order.
func compactMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
