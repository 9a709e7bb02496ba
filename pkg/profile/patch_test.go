package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
)

func TestNewPatch(t *testing.T) {
	snap := form.NewSnapshot(Schema(), map[string]any{
		FieldFirstName: "  Ann ",
		FieldLastName:  "<i>Doe</i>",
		FieldEmail:     "ann@example.com",
		FieldAbout:     `<script>alert(1)</script>Rock & roll`,
		FieldCountry:   "us",
	})

	want := Patch{
		FirstName: "Ann",
		LastName:  "Doe",
		Email:     "ann@example.com",
		About:     "Rock & roll",
		Country:   "US",
	}
	if diff := cmp.Diff(want, NewPatch(snap)); diff != "" {
		t.Fatalf("patch mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPatchOmitsEmailForExternalAccounts(t *testing.T) {
	snap := form.NewSnapshot(Schema(), map[string]any{
		FieldEmail:        "ann@example.com",
		FieldExternalAuth: true,
	})
	if got := NewPatch(snap).Email; got != "" {
		t.Fatalf("expected email omitted, got %q", got)
	}
}
