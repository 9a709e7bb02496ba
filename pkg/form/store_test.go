package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func profileSchema() Schema {
	return NewSchema(
		Field{Name: "firstName", Label: "First Name"},
		Field{Name: "lastName", Label: "Last Name"},
		Field{Name: "email", Label: "Email Address"},
		Field{Name: "country", Label: "Country"},
		Field{Name: "externalAuth", Kind: KindBool},
		Field{Name: "mode", Kind: KindEnum, Options: []string{"vedic", "zodiac"}},
	)
}

func TestNewSnapshotFillsEveryField(t *testing.T) {
	snap := NewSnapshot(profileSchema(), map[string]any{
		"firstName": "Ann",
		"unknown":   "dropped",
	})

	want := map[string]any{
		"firstName":    "Ann",
		"lastName":     "",
		"email":        "",
		"country":      "",
		"externalAuth": false,
		"mode":         "vedic",
	}
	if diff := cmp.Diff(want, snap.Map()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"firstName", "lastName", "email", "country", "externalAuth", "mode"}, snap.Fields()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSetPreservesOtherFieldsAndClearsFeedback(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{
		"firstName": "",
		"lastName":  "Doe",
		"email":     "a@b.com",
		"country":   "US",
	})
	store.SetErrors("", "First name is required")

	if err := store.Set("firstName", "Ann"); err != nil {
		t.Fatalf("set: %v", err)
	}

	snap := store.Snapshot()
	if got := snap.String("firstName"); got != "Ann" {
		t.Fatalf("expected firstName Ann, got %q", got)
	}
	if got := snap.String("lastName"); got != "Doe" {
		t.Fatalf("expected lastName untouched, got %q", got)
	}
	if fb := store.Feedback(); !fb.Empty() {
		t.Fatalf("expected feedback cleared, got %#v", fb)
	}
}

func TestStoreSetClearsSuccessBanner(t *testing.T) {
	store := NewStore(profileSchema(), nil)
	store.SetSuccess("Saved")
	if err := store.Set("country", "FR"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if fb := store.Feedback(); fb.Success != "" {
		t.Fatalf("expected success cleared, got %q", fb.Success)
	}
}

func TestStoreSetUnknownField(t *testing.T) {
	store := NewStore(profileSchema(), nil)
	if err := store.Set("nickname", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestStoreSetNilUsesDefault(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{"mode": "zodiac"})
	if err := store.Set("mode", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := store.Snapshot().String("mode"); got != "vedic" {
		t.Fatalf("expected default enum option, got %q", got)
	}
}

func TestStoreResetIsAtomicAndKeepsFeedback(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{"firstName": "Old", "lastName": "Name"})
	store.SetSuccess("Profile updated")

	store.Reset(map[string]any{"firstName": "New"})

	snap := store.Snapshot()
	if snap.String("firstName") != "New" || snap.String("lastName") != "" {
		t.Fatalf("unexpected snapshot after reset: %#v", snap.Map())
	}
	if store.Feedback().Success != "Profile updated" {
		t.Fatalf("expected success banner to survive reset")
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{"firstName": "Ann"})
	snap := store.Snapshot()
	_ = store.Set("firstName", "Bea")
	if snap.String("firstName") != "Ann" {
		t.Fatalf("snapshot mutated by later Set")
	}
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(profileSchema(), nil)
	var events []EventKind
	unsubscribe := store.Subscribe(func(evt Event) {
		events = append(events, evt.Kind)
	})

	_ = store.Set("firstName", "Ann")
	store.Reset(nil)
	store.SetErrors("", "boom")
	unsubscribe()
	_ = store.Set("firstName", "Bea")

	want := []EventKind{EventFieldSet, EventReset, EventFeedback}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreClosedIgnoresUpdates(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{"firstName": "Ann"})
	store.Close()

	if err := store.Set("firstName", "Bea"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	store.Reset(map[string]any{"firstName": "Cid"})
	store.SetErrors("", "late error")

	if got := store.Snapshot().String("firstName"); got != "Ann" {
		t.Fatalf("expected no updates after close, got %q", got)
	}
	if !store.Feedback().Empty() {
		t.Fatalf("expected no feedback after close")
	}
}

func TestFeedbackText(t *testing.T) {
	fb := Feedback{Errors: []string{"Token expired"}, Hint: "Please log in again."}
	if got := fb.Text(); got != "Token expired Please log in again." {
		t.Fatalf("unexpected text %q", got)
	}
	if got := (Feedback{Success: "Saved"}).Text(); got != "Saved" {
		t.Fatalf("unexpected success text %q", got)
	}
}

func TestSetErrorsCompactsMessages(t *testing.T) {
	store := NewStore(profileSchema(), nil)
	store.SetErrors("", " First ", "First", "", "Second")
	if diff := cmp.Diff([]string{"First", "Second"}, store.Feedback().Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreAssignKeepsFeedback(t *testing.T) {
	store := NewStore(profileSchema(), map[string]any{"firstName": "Ann", "country": "us"})
	store.SetErrors("", "Failed to update profile")

	if err := store.Assign(map[string]any{"country": "US", "lastName": "Doe"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	snap := store.Snapshot()
	if snap.String("country") != "US" || snap.String("lastName") != "Doe" || snap.String("firstName") != "Ann" {
		t.Fatalf("unexpected snapshot %#v", snap.Map())
	}
	if diff := cmp.Diff([]string{"Failed to update profile"}, store.Feedback().Errors); diff != "" {
		t.Fatalf("feedback mismatch (-want +got):\n%s", diff)
	}

	if err := store.Assign(map[string]any{"bogus": 1, "lastName": "X"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if store.Snapshot().String("lastName") != "Doe" {
		t.Fatalf("rejected assign must not write any field")
	}
}
