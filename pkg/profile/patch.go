package profile

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formflow/pkg/form"
)

// Patch is the update body sent to the UserService. Email is empty, and
// omitted on the wire, for externally authenticated accounts.
type Patch struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	About     string `json:"about"`
	Country   string `json:"country"`
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// NewPatch builds the update body from snapshot. Free text is stripped of
// markup.
func NewPatch(snapshot form.Snapshot) Patch {
	p := Patch{
		FirstName: plainText(snapshot.Trimmed(FieldFirstName)),
		LastName:  plainText(snapshot.Trimmed(FieldLastName)),
		About:     plainText(snapshot.Trimmed(FieldAbout)),
		Country:   strings.ToUpper(snapshot.Trimmed(FieldCountry)),
	}
	if !snapshot.Bool(FieldExternalAuth) {
		p.Email = snapshot.Trimmed(FieldEmail)
	}
	return p
}

func plainText(value string) string {
	if value == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	// StrictPolicy escapes entities; the API stores plain text.
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}
