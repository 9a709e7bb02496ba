package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/profile"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Location choices offered by LookupChart.
const (
	choiceCurrentLocation = "Use my current location"
	choiceMap             = "Pick on the map"
	choiceSkip            = "Skip"
)

// Runner drives the form controllers from a terminal.
type Runner struct {
	driver   PromptDriver
	out      io.Writer
	theme    Theme
	attempts int
	chart    ChartFormatter
	profile  ProfileFormatter
	logger   *zap.Logger
}

// New builds a Runner. Without WithPromptDriver it prompts through survey.
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		attempts: DefaultMaxAttempts,
		logger:   zap.NewNop(),
		chart: func(c astro.Chart) (string, error) {
			return c.Summary(), nil
		},
		profile: func(u profile.User) (string, error) {
			return fmt.Sprintf("Editing %s (%s account)", u.DisplayName(), u.AccountType()), nil
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}
	return r, nil
}

// EditProfile prompts for every editable profile field and saves the result.
// Rejected forms are prompted again up to the configured attempts. A session
// fault ends the flow immediately.
func (r *Runner) EditProfile(ctx context.Context, c *profile.Controller) (submit.Outcome, error) {
	if c == nil {
		return submit.Outcome{}, errors.New("tui: nil profile controller")
	}
	if banner, err := r.profile(c.User()); err == nil && banner != "" {
		if err := r.info(ctx, banner); err != nil {
			return submit.Outcome{}, err
		}
	}

	var last submit.Outcome
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := r.promptProfile(ctx, c); err != nil {
			return last, err
		}
		save, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Save changes?", Default: true})
		if err != nil {
			return last, err
		}
		if !save {
			return last, r.info(ctx, "No changes saved.")
		}

		out, err := c.Submit(ctx)
		last = out
		if err != nil && faults.KindOf(err) != faults.KindFieldValidation {
			return out, err
		}
		if rerr := r.report(ctx, c.Feedback()); rerr != nil {
			return out, rerr
		}
		if done, derr := r.finished(ctx, out, err, attempt); done {
			return out, derr
		}
	}
	return last, ErrTooManyAttempts
}

// LookupChart prompts for birth details, resolves the birth place and prints
// the chart. It returns the chart on success.
func (r *Runner) LookupChart(ctx context.Context, c *astro.Controller) (astro.Chart, error) {
	if c == nil {
		return astro.Chart{}, errors.New("tui: nil astro controller")
	}
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := r.promptBirthDetails(ctx, c); err != nil {
			return astro.Chart{}, err
		}
		if !c.CanSubmit() {
			if err := r.errorf(ctx, "Date of birth is required"); err != nil {
				return astro.Chart{}, err
			}
			continue
		}

		out, err := c.Submit(ctx)
		if err != nil && faults.KindOf(err) != faults.KindFieldValidation {
			return astro.Chart{}, err
		}
		if msg := c.Message(); msg != "" && out.State != submit.Succeeded {
			if err := r.errorf(ctx, "%s", msg); err != nil {
				return astro.Chart{}, err
			}
		}
		if out.State == submit.Succeeded {
			chart, _ := c.Result()
			text, ferr := r.chart(chart)
			if ferr != nil {
				return chart, ferr
			}
			return chart, r.info(ctx, text)
		}
		if done, derr := r.finished(ctx, out, err, attempt); done {
			return astro.Chart{}, derr
		}
	}
	return astro.Chart{}, ErrTooManyAttempts
}

// finished decides whether a failed round ends the flow.
func (r *Runner) finished(ctx context.Context, out submit.Outcome, err error, attempt int) (bool, error) {
	switch {
	case out.State == submit.Succeeded:
		return true, nil
	case out.Discarded:
		return true, form.ErrClosed
	case faults.IsSession(out.Err):
		return true, out.Err
	case err != nil:
		// invalid form, prompt again
		return false, nil
	}
	if attempt >= r.attempts {
		return false, nil
	}
	again, cerr := r.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
	if cerr != nil {
		return true, cerr
	}
	if !again {
		return true, out.Err
	}
	return false, nil
}

func (r *Runner) promptProfile(ctx context.Context, c *profile.Controller) error {
	snap := c.Snapshot()

	for _, field := range []struct{ name, label string }{
		{profile.FieldFirstName, "First Name"},
		{profile.FieldLastName, "Last Name"},
	} {
		value, err := r.driver.Input(ctx, InputConfig{Message: field.label, Default: snap.String(field.name)})
		if err != nil {
			return err
		}
		if err := c.Set(field.name, value); err != nil {
			return err
		}
	}

	if c.EmailLocked() {
		msg := fmt.Sprintf("Email %s is managed by your sign-in provider.", snap.String(profile.FieldEmail))
		if err := r.info(ctx, msg); err != nil {
			return err
		}
	} else {
		email, err := r.driver.Input(ctx, InputConfig{Message: "Email", Default: snap.String(profile.FieldEmail)})
		if err != nil {
			return err
		}
		if err := c.Set(profile.FieldEmail, email); err != nil {
			return err
		}
	}

	about, err := r.driver.TextArea(ctx, TextAreaConfig{Message: "About", Default: snap.String(profile.FieldAbout)})
	if err != nil {
		return err
	}
	if err := c.Set(profile.FieldAbout, about); err != nil {
		return err
	}

	country, err := r.promptCountry(ctx, c, snap.String(profile.FieldCountry))
	if err != nil {
		return err
	}
	return c.Set(profile.FieldCountry, country)
}

func (r *Runner) promptCountry(ctx context.Context, c *profile.Controller, current string) (string, error) {
	list := c.Countries()
	if len(list) == 0 {
		value, err := r.driver.Input(ctx, InputConfig{
			Message: "Country",
			Default: current,
			Help:    "Two letter country code",
		})
		return strings.ToUpper(strings.TrimSpace(value)), err
	}

	options := make([]string, len(list))
	def := -1
	for i, country := range list {
		options[i] = fmt.Sprintf("%s (%s)", country.Name, country.Code)
		if strings.EqualFold(country.Code, current) {
			def = i
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      "Country",
		Options:      options,
		DefaultIndex: def,
		PageSize:     10,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(list) {
		return current, nil
	}
	return list[idx].Code, nil
}

func (r *Runner) promptBirthDetails(ctx context.Context, c *astro.Controller) error {
	snap := c.Snapshot()

	date, err := r.driver.Input(ctx, InputConfig{
		Message: "Date of Birth",
		Default: snap.String(astro.FieldDateOfBirth),
		Help:    "YYYY-MM-DD",
	})
	if err != nil {
		return err
	}
	if err := c.Set(astro.FieldDateOfBirth, date); err != nil {
		return err
	}

	tob, err := r.driver.Input(ctx, InputConfig{
		Message: "Time of Birth",
		Default: snap.String(astro.FieldTimeOfBirth),
		Help:    "HH:MM, optional",
	})
	if err != nil {
		return err
	}
	if err := c.Set(astro.FieldTimeOfBirth, tob); err != nil {
		return err
	}

	modes := astro.Modes()
	labels := make([]string, len(modes))
	def := 0
	for i, mode := range modes {
		labels[i] = mode.Label()
		if mode == c.Mode() {
			def = i
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Select Calculation Type", Options: labels, DefaultIndex: def})
	if err != nil {
		return err
	}
	if idx >= 0 && idx < len(modes) {
		if err := c.SetMode(modes[idx]); err != nil {
			return err
		}
	}

	return r.promptLocation(ctx, c)
}

func (r *Runner) promptLocation(ctx context.Context, c *astro.Controller) error {
	switch c.LocationState() {
	case location.DeviceResolved, location.ManualResolved:
		snap := c.Snapshot()
		keep, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Keep birth place %s, %s?", snap.String(astro.FieldLatitude), snap.String(astro.FieldLongitude)),
			Default: true,
		})
		if err != nil || keep {
			return err
		}
	}

	options := []string{choiceCurrentLocation, choiceMap, choiceSkip}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Birth place", Options: options, DefaultIndex: 2})
	if err != nil {
		return err
	}
	switch indexAt(options, idx) {
	case choiceCurrentLocation:
		state, err := c.UseCurrentLocation(ctx)
		if err != nil {
			return err
		}
		if state != location.DeviceFailed {
			return r.coordinateInfo(ctx, c)
		}
		if err := r.errorf(ctx, "%s", c.GeoError()); err != nil {
			return err
		}
		manual, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Pick your location on the map instead?", Default: true})
		if err != nil || !manual {
			return err
		}
		return r.pickOnMap(ctx, c)
	case choiceMap:
		return r.pickOnMap(ctx, c)
	default:
		return nil
	}
}

// pickOnMap stands in for the map picker: the point is entered as decimal
// degrees.
func (r *Runner) pickOnMap(ctx context.Context, c *astro.Controller) error {
	if err := c.OpenMap(); err != nil {
		return err
	}
	snap := c.Snapshot()
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lat, err := r.driver.Input(ctx, InputConfig{Message: "Latitude", Default: snap.String(astro.FieldLatitude)})
		if err != nil {
			c.CloseMap()
			return err
		}
		lng, err := r.driver.Input(ctx, InputConfig{Message: "Longitude", Default: snap.String(astro.FieldLongitude)})
		if err != nil {
			c.CloseMap()
			return err
		}
		coord, err := location.ParseCoordinate(strings.TrimSpace(lat), strings.TrimSpace(lng))
		if err == nil {
			err = c.PickLocation(coord)
		}
		if err == nil {
			return r.coordinateInfo(ctx, c)
		}
		r.logger.Debug("map pick rejected", zap.Error(err))
		if perr := r.errorf(ctx, "Latitude must be between -90 and 90 and longitude between -180 and 180."); perr != nil {
			return perr
		}
	}
	c.CloseMap()
	return nil
}

func (r *Runner) coordinateInfo(ctx context.Context, c *astro.Controller) error {
	snap := c.Snapshot()
	return r.info(ctx, fmt.Sprintf("Birth place set to %s, %s",
		snap.String(astro.FieldLatitude), snap.String(astro.FieldLongitude)))
}

func (r *Runner) report(ctx context.Context, fb form.Feedback) error {
	if fb.Success != "" {
		return r.info(ctx, fb.Success)
	}
	for i, msg := range fb.Errors {
		if i == 0 && fb.Hint != "" {
			msg += " " + fb.Hint
		}
		if err := r.errorf(ctx, "%s", msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Runner) errorf(ctx context.Context, format string, args ...any) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+fmt.Sprintf(format, args...))
}

func indexAt(options []string, idx int) string {
	if idx < 0 || idx >= len(options) {
		return ""
	}
	return options[idx]
}
