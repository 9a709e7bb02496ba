package astro

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// FallbackMessage is shown when a failure carries no message.
const FallbackMessage = "Failed to fetch astrology data"

const (
	latitudeMessage  = "Latitude must be a number between -90 and 90"
	longitudeMessage = "Longitude must be a number between -180 and 180"
	formName         = "astro"
)

// ErrUnknownMode is returned by SetMode for modes other than vedic and zodiac.
var ErrUnknownMode = errors.New("astro: unknown calculation type")

// Controller drives the birth-details lookup form.
type Controller struct {
	charts      ChartService
	locator     location.Locator
	guard       *session.Guard
	onComplete  submit.CompletionFunc
	logger      *zap.Logger
	recorder    submit.Recorder
	locRecorder location.Recorder

	store     *form.Store
	validator validation.Validator
	submitter *submit.Submitter
	resolver  *location.Resolver

	mu     sync.RWMutex
	chart  *Chart
	closed bool
}

// New builds a controller with an empty form in vedic mode.
func New(charts ChartService, opts ...Option) *Controller {
	c := &Controller{
		charts: charts,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.Named(formName)

	c.store = form.NewStore(Schema(), nil)
	c.validator = validation.New(
		validation.Required(FieldDateOfBirth, "Date of birth is required"),
		validation.Date(FieldDateOfBirth, "Invalid date of birth"),
		validation.Clock(FieldTimeOfBirth, "Invalid time of birth"),
		validation.Between(FieldLatitude, -90, 90, latitudeMessage),
		validation.Between(FieldLongitude, -180, 180, longitudeMessage),
		coordinatePair,
		validation.OneOf(FieldMode, []string{string(ModeVedic), string(ModeZodiac)}, "Invalid calculation type"),
	)
	c.resolver = location.NewResolver(c.locator, location.SinkFunc(c.writeCoordinate),
		location.WithLogger(c.logger),
		location.WithRecorder(c.locRecorder),
	)
	c.submitter = submit.New(formName, c.store, c.compute,
		submit.WithCompletion(c.onComplete),
		submit.WithSessionGuard(c.guard),
		submit.WithFallbackMessage(FallbackMessage),
		submit.WithLogger(c.logger),
		submit.WithRecorder(c.recorder),
	)
	return c
}

// coordinatePair rejects a birth place with only one component.
func coordinatePair(s form.Snapshot) (validation.Issue, bool) {
	lat, lng := s.Trimmed(FieldLatitude), s.Trimmed(FieldLongitude)
	switch {
	case lat != "" && lng == "":
		return validation.Issue{Field: FieldLongitude, Message: longitudeMessage}, true
	case lat == "" && lng != "":
		return validation.Issue{Field: FieldLatitude, Message: latitudeMessage}, true
	}
	return validation.Issue{}, false
}

// Set records one edit. It clears the geo error and any banner.
func (c *Controller) Set(field string, value any) error {
	if err := c.store.Set(field, value); err != nil {
		return err
	}
	c.resolver.ClearGeoError()
	c.submitter.Touch()
	return nil
}

// SetMode selects the calculation.
func (c *Controller) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return c.Set(FieldMode, string(mode))
}

// Mode returns the selected calculation.
func (c *Controller) Mode() Mode {
	return Mode(c.store.Snapshot().Trimmed(FieldMode))
}

// UseCurrentLocation asks the device for the birth place. Device failures are
// reported through GeoError, not the returned error.
func (c *Controller) UseCurrentLocation(ctx context.Context) (location.State, error) {
	return c.resolver.RequestDevice(ctx)
}

// OpenMap shows the manual picker.
func (c *Controller) OpenMap() error { return c.resolver.OpenMap() }

// CloseMap hides the manual picker without choosing a point.
func (c *Controller) CloseMap() { c.resolver.CloseMap() }

// ToggleMap flips the manual picker.
func (c *Controller) ToggleMap() error { return c.resolver.ToggleMap() }

// MapOpen reports whether the manual picker is showing.
func (c *Controller) MapOpen() bool { return c.resolver.MapOpen() }

// PickLocation records a point chosen on the map. A pick is a user edit, so
// it clears the banner and returns a finished lookup to Idle.
func (c *Controller) PickLocation(coord location.Coordinate) error {
	if err := c.resolver.Pick(coord); err != nil {
		return err
	}
	c.store.ClearFeedback()
	c.submitter.Touch()
	return nil
}

// LocationState returns the resolver state.
func (c *Controller) LocationState() location.State { return c.resolver.State() }

// GeoError returns the last geolocation message.
func (c *Controller) GeoError() string { return c.resolver.GeoError() }

// Message is the single error line shown under the form: the geo error when
// present, otherwise the submission feedback.
func (c *Controller) Message() string {
	if geo := c.resolver.GeoError(); geo != "" {
		return geo
	}
	return c.store.Feedback().Text()
}

// CanSubmit reports whether the submit action is enabled.
func (c *Controller) CanSubmit() bool {
	if c.submitter.InFlight() || c.store.Closed() {
		return false
	}
	return c.store.Snapshot().Trimmed(FieldDateOfBirth) != ""
}

// Validate runs the astro rules against the current values.
func (c *Controller) Validate() validation.Result {
	return c.validator.Validate(c.store.Snapshot())
}

// Submit validates and, when valid, requests the chart. Validation failures
// are rendered and returned as a field validation fault.
func (c *Controller) Submit(ctx context.Context) (submit.Outcome, error) {
	if c.submitter.InFlight() {
		return submit.Outcome{State: submit.InFlight, Skipped: true}, nil
	}
	if c.store.Closed() {
		return submit.Outcome{State: c.submitter.State(), Discarded: true}, form.ErrClosed
	}

	snapshot := c.store.Snapshot()
	result := c.validator.Validate(snapshot)
	if !result.Valid {
		c.store.SetErrors("", result.Messages()...)
		fault := faults.New(faults.KindFieldValidation, result.Messages()[0])
		fault.Fields = make(map[string][]string)
		for _, issue := range result.Issues {
			fault.Fields[issue.Field] = append(fault.Fields[issue.Field], issue.Message)
		}
		return submit.Outcome{State: c.submitter.State(), Kind: faults.KindFieldValidation}, fault
	}
	return c.submitter.Submit(ctx, snapshot), nil
}

// Result returns the last chart received.
func (c *Controller) Result() (Chart, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.chart == nil {
		return Chart{}, false
	}
	return *c.chart, true
}

// Snapshot returns the current form values.
func (c *Controller) Snapshot() form.Snapshot { return c.store.Snapshot() }

// Feedback returns the submission banner state.
func (c *Controller) Feedback() form.Feedback { return c.store.Feedback() }

// State returns the submission state.
func (c *Controller) State() submit.State { return c.submitter.State() }

// Subscribe registers fn for form changes.
func (c *Controller) Subscribe(fn form.Listener) func() { return c.store.Subscribe(fn) }

// Close cancels the form. The snapshot is discarded and a pending lookup is
// ignored when it resolves.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.submitter.Detach()
	c.store.Close()
}

func (c *Controller) compute(ctx context.Context, snapshot form.Snapshot) (any, error) {
	if c.charts == nil {
		return nil, faults.New(faults.KindTransport, "")
	}
	details, err := NewBirthDetails(snapshot)
	if err != nil {
		return nil, faults.Wrap(faults.KindFieldValidation, "", err)
	}
	chart, err := c.charts.ComputeChart(ctx, details)
	if err != nil {
		return nil, err
	}
	if chart.Mode == "" {
		chart.Mode = details.Mode
	}

	c.mu.Lock()
	if !c.closed {
		c.chart = &chart
	}
	c.mu.Unlock()
	return chart, nil
}

func (c *Controller) writeCoordinate(coord location.Coordinate) error {
	lat, lng := coord.Strings()
	return c.store.Assign(map[string]any{
		FieldLatitude:  lat,
		FieldLongitude: lng,
	})
}
