package render

import (
	"strings"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/profile"
)

// Template names shipped with the package.
const (
	TemplateProfileBanner = "profile_banner"
	TemplateChart         = "chart"
	TemplateCountries     = "countries"
)

// ProfileBanner describes the account being edited.
func (e *Engine) ProfileBanner(user profile.User) (string, error) {
	out, err := e.RenderTemplate(TemplateProfileBanner, map[string]any{
		"name":    user.DisplayName(),
		"email":   user.Email,
		"account": user.AccountType(),
		"locked":  user.ExternalAuth,
	})
	return strings.TrimSpace(out), err
}

// Chart renders a fetched chart.
func (e *Engine) Chart(chart astro.Chart) (string, error) {
	attributes := make(map[string]any, len(chart.Attributes))
	for key, value := range chart.Attributes {
		attributes[key] = value
	}
	out, err := e.RenderTemplate(TemplateChart, map[string]any{
		"mode":        chart.Mode.Label(),
		"sign":        chart.Sign,
		"nakshatra":   chart.Nakshatra,
		"element":     chart.Element,
		"description": chart.Description,
		"attributes":  attributes,
	})
	return strings.TrimSpace(out), err
}

// Countries renders one line per country.
func (e *Engine) Countries(list []countries.Country) (string, error) {
	out, err := e.RenderTemplate(TemplateCountries, map[string]any{"countries": list})
	return strings.TrimRight(out, "\n"), err
}
