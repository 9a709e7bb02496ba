package astro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/location"
)

// Field names of the astro form.
const (
	FieldDateOfBirth = "dateOfBirth"
	FieldTimeOfBirth = "timeOfBirth"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldMode        = "mode"
)

// Mode selects the calculation.
type Mode string

const (
	// ModeVedic derives the sign from the moon position.
	ModeVedic Mode = "vedic"
	// ModeZodiac derives the sign from the sun position.
	ModeZodiac Mode = "zodiac"
)

// Modes lists the calculation modes in display order.
func Modes() []Mode { return []Mode{ModeVedic, ModeZodiac} }

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeVedic || m == ModeZodiac
}

// Label is the human readable mode name.
func (m Mode) Label() string {
	switch m {
	case ModeVedic:
		return "Vedic (Lunar)"
	case ModeZodiac:
		return "Zodiac (Solar)"
	default:
		return string(m)
	}
}

// BirthDetails is the request sent to the ChartService.
type BirthDetails struct {
	DateOfBirth string   `json:"dateOfBirth"`
	TimeOfBirth string   `json:"timeOfBirth,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Mode        Mode     `json:"-"`
}

// Coordinate returns the birth place, when both components are present.
func (b BirthDetails) Coordinate() (location.Coordinate, bool) {
	if b.Latitude == nil || b.Longitude == nil {
		return location.Coordinate{}, false
	}
	return location.Coordinate{Lat: *b.Latitude, Lng: *b.Longitude}, true
}

// Chart is the astrology result.
type Chart struct {
	Mode        Mode              `json:"mode"`
	Sign        string            `json:"sign"`
	Nakshatra   string            `json:"nakshatra,omitempty"`
	Element     string            `json:"element,omitempty"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// ChartService computes charts remotely.
type ChartService interface {
	ComputeChart(ctx context.Context, details BirthDetails) (Chart, error)
}

// ChartServiceFunc adapts a function to ChartService.
type ChartServiceFunc func(ctx context.Context, details BirthDetails) (Chart, error)

// ComputeChart implements ChartService.
func (f ChartServiceFunc) ComputeChart(ctx context.Context, details BirthDetails) (Chart, error) {
	return f(ctx, details)
}

// Schema is the astro form layout.
func Schema() form.Schema {
	return form.NewSchema(
		form.Field{Name: FieldDateOfBirth, Label: "Date of Birth", Kind: form.KindDate},
		form.Field{Name: FieldTimeOfBirth, Label: "Time of Birth", Kind: form.KindTime},
		form.Field{Name: FieldLatitude, Label: "Latitude"},
		form.Field{Name: FieldLongitude, Label: "Longitude"},
		form.Field{
			Name:    FieldMode,
			Label:   "Select Calculation Type",
			Kind:    form.KindEnum,
			Options: []string{string(ModeVedic), string(ModeZodiac)},
		},
	)
}

// NewBirthDetails builds the request from a validated snapshot.
func NewBirthDetails(snapshot form.Snapshot) (BirthDetails, error) {
	details := BirthDetails{
		DateOfBirth: snapshot.Trimmed(FieldDateOfBirth),
		TimeOfBirth: snapshot.Trimmed(FieldTimeOfBirth),
		Mode:        Mode(snapshot.Trimmed(FieldMode)),
	}
	if v, ok := snapshot.Get(FieldDateOfBirth); ok {
		if t, isTime := v.(time.Time); isTime && !t.IsZero() {
			details.DateOfBirth = form.FormatDate(t)
		}
	}
	if details.DateOfBirth == "" {
		return BirthDetails{}, fmt.Errorf("astro: missing date of birth")
	}
	if !details.Mode.Valid() {
		details.Mode = ModeVedic
	}

	lat, lng := snapshot.Trimmed(FieldLatitude), snapshot.Trimmed(FieldLongitude)
	if lat != "" && lng != "" {
		coord, err := location.ParseCoordinate(lat, lng)
		if err != nil {
			return BirthDetails{}, fmt.Errorf("astro: birth place: %w", err)
		}
		details.Latitude, details.Longitude = &coord.Lat, &coord.Lng
	}
	return details, nil
}

// Summary renders a one-line description of the chart.
func (c Chart) Summary() string {
	parts := []string{c.Sign}
	if c.Nakshatra != "" {
		parts = append(parts, "nakshatra "+c.Nakshatra)
	}
	if c.Element != "" {
		parts = append(parts, c.Element)
	}
	return strings.Join(parts, ", ")
}
