package profile

import (
	"context"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/form"
)

// Field names of the profile form.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldEmail        = "email"
	FieldAbout        = "about"
	FieldCountry      = "country"
	FieldExternalAuth = "externalAuth"
)

// Account types reported by User.AccountType.
const (
	AccountLocal    = "local"
	AccountExternal = "external"
)

// User is the authoritative account record.
type User struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	About     string `json:"about,omitempty"`
	Country   string `json:"country"`
	// ExternalAuth is set for accounts managed by a third-party identity
	// provider. Their email address cannot be changed here.
	ExternalAuth bool `json:"isGoogleUser"`
}

// AccountType names how the account authenticates.
func (u User) AccountType() string {
	if u.ExternalAuth {
		return AccountExternal
	}
	return AccountLocal
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// values seeds a form snapshot from the user.
func (u User) values() map[string]any {
	return map[string]any{
		FieldFirstName:    u.FirstName,
		FieldLastName:     u.LastName,
		FieldEmail:        u.Email,
		FieldAbout:        u.About,
		FieldCountry:      u.Country,
		FieldExternalAuth: u.ExternalAuth,
	}
}

// UserService is the remote collaborator owning user records.
type UserService interface {
	FetchCurrentUser(ctx context.Context) (User, error)
	UpdateUser(ctx context.Context, patch Patch) error
}

// CountryService lists the countries offered by the country selector.
type CountryService interface {
	ListCountries(ctx context.Context) ([]countries.Country, error)
}

// CountryServiceFunc adapts a function to CountryService.
type CountryServiceFunc func(ctx context.Context) ([]countries.Country, error)

// ListCountries implements CountryService.
func (f CountryServiceFunc) ListCountries(ctx context.Context) ([]countries.Country, error) {
	return f(ctx)
}

// Schema is the profile form layout.
func Schema() form.Schema {
	return form.NewSchema(
		form.Field{Name: FieldFirstName, Label: "First Name"},
		form.Field{Name: FieldLastName, Label: "Last Name"},
		form.Field{Name: FieldEmail, Label: "Email Address"},
		form.Field{Name: FieldAbout, Label: "About"},
		form.Field{Name: FieldCountry, Label: "Country"},
		form.Field{Name: FieldExternalAuth, Kind: form.KindBool},
	)
}
