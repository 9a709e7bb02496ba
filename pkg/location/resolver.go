package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/faults"
)

var (
	// ErrOutOfRange is returned for coordinates outside the valid bounds.
	ErrOutOfRange = errors.New("location: coordinate out of range")
	// ErrTransition is returned when an operation is not valid in the current state.
	ErrTransition = errors.New("location: invalid transition")
)

// Coordinate is a validated latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinate validates and returns a coordinate.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ParseCoordinate parses decimal degree strings.
func ParseCoordinate(lat, lng string) (Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrOutOfRange, lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrOutOfRange, lng)
	}
	return NewCoordinate(la, ln)
}

// Validate checks both components are finite and within bounds.
func (c Coordinate) Validate() error {
	if !finite(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRange, c.Lat)
	}
	if !finite(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRange, c.Lng)
	}
	return nil
}

// Strings renders both components for text inputs.
func (c Coordinate) Strings() (lat, lng string) {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64), strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// State is the resolver lifecycle.
type State string

const (
	NoLocation           State = "no_location"
	DeviceRequestPending State = "device_request_pending"
	DeviceResolved       State = "device_resolved"
	ManualPending        State = "manual_pending"
	ManualResolved       State = "manual_resolved"
	DeviceFailed         State = "device_failed"
)

// Geo error messages surfaced when the device capability fails.
const (
	MessagePermissionDenied = "Location permission denied. Pick your location on the map instead."
	MessageTimeout          = "Timed out while fetching your location."
	MessageUnavailable      = "Geolocation is not available on this device."
	MessageFailed           = "Unable to retrieve your location."
)

// Locator is the device geolocation capability.
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Coordinate, error)

// CurrentPosition implements Locator.
func (f LocatorFunc) CurrentPosition(ctx context.Context) (Coordinate, error) {
	return f(ctx)
}

// Sink receives resolved coordinates. Implementations write latitude and
// longitude only.
type Sink interface {
	SetCoordinate(Coordinate) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Coordinate) error

// SetCoordinate implements Sink.
func (f SinkFunc) SetCoordinate(c Coordinate) error {
	return f(c)
}

// Recorder receives one observation per resolution attempt.
type Recorder interface {
	Resolution(method string, result string)
}

// Resolver resolves a coordinate from the device or from a manual map pick.
type Resolver struct {
	locator  Locator
	sink     Sink
	logger   *zap.Logger
	recorder Recorder

	mu        sync.Mutex
	state     State
	beforeMap State
	geoError  string
	current   *Coordinate
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder reports resolution attempts.
func WithRecorder(recorder Recorder) Option {
	return func(r *Resolver) {
		r.recorder = recorder
	}
}

// NewResolver builds a resolver writing into sink. locator may be nil when the
// device has no geolocation capability.
func NewResolver(locator Locator, sink Sink, opts ...Option) *Resolver {
	r := &Resolver{
		locator: locator,
		sink:    sink,
		logger:  zap.NewNop(),
		state:   NoLocation,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// GeoError returns the last geo error message, if any.
func (r *Resolver) GeoError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geoError
}

// ClearGeoError removes the geo error without changing state.
func (r *Resolver) ClearGeoError() {
	r.mu.Lock()
	r.geoError = ""
	r.mu.Unlock()
}

// Current returns the last resolved coordinate.
func (r *Resolver) Current() (Coordinate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Coordinate{}, false
	}
	return *r.current, true
}

// MapOpen reports whether the manual picker is showing.
func (r *Resolver) MapOpen() bool {
	return r.State() == ManualPending
}

// RequestDevice asks the locator for the current position. A request while one
// is pending is a no-op. Device failures are not returned as errors: they move
// the resolver to DeviceFailed and set a geo error message.
func (r *Resolver) RequestDevice(ctx context.Context) (State, error) {
	r.mu.Lock()
	if r.state == DeviceRequestPending {
		r.mu.Unlock()
		return DeviceRequestPending, nil
	}
	previous := r.state
	r.state = DeviceRequestPending
	r.geoError = ""
	r.mu.Unlock()

	if r.locator == nil {
		return r.deviceFailed(faults.New(faults.KindUnavailable, "")), nil
	}

	coord, err := r.locator.CurrentPosition(ctx)
	if err == nil {
		err = coord.Validate()
	}
	if err != nil {
		r.logger.Warn("device location failed", zap.String("previous", string(previous)), zap.Error(err))
		return r.deviceFailed(err), nil
	}

	if err := r.write(coord); err != nil {
		return r.deviceFailed(err), err
	}

	r.mu.Lock()
	r.state = DeviceResolved
	r.mu.Unlock()
	r.observe("device", "resolved")
	return DeviceResolved, nil
}

// OpenMap switches to manual selection.
func (r *Resolver) OpenMap() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case DeviceRequestPending:
		return fmt.Errorf("%w: map picker while device request pending", ErrTransition)
	case ManualPending:
		return nil
	}
	r.beforeMap = r.state
	r.state = ManualPending
	return nil
}

// CloseMap leaves manual selection without picking a point.
func (r *Resolver) CloseMap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ManualPending {
		return
	}
	r.state = r.beforeMap
	if r.state == "" {
		r.state = NoLocation
	}
}

// ToggleMap opens the picker when closed and closes it when open.
func (r *Resolver) ToggleMap() error {
	if r.MapOpen() {
		r.CloseMap()
		return nil
	}
	return r.OpenMap()
}

// Pick records a point chosen on the map.
func (r *Resolver) Pick(coord Coordinate) error {
	if r.State() != ManualPending {
		return fmt.Errorf("%w: pick without open map", ErrTransition)
	}
	if err := coord.Validate(); err != nil {
		r.observe("manual", "rejected")
		return err
	}
	if err := r.write(coord); err != nil {
		return err
	}
	r.mu.Lock()
	r.state = ManualResolved
	r.geoError = ""
	r.mu.Unlock()
	r.observe("manual", "resolved")
	return nil
}

func (r *Resolver) write(coord Coordinate) error {
	if r.sink != nil {
		if err := r.sink.SetCoordinate(coord); err != nil {
			return err
		}
	}
	r.mu.Lock()
	c := coord
	r.current = &c
	r.mu.Unlock()
	return nil
}

func (r *Resolver) deviceFailed(err error) State {
	message := GeoMessage(err)
	r.mu.Lock()
	r.state = DeviceFailed
	r.geoError = message
	r.mu.Unlock()
	r.observe("device", string(faults.KindOf(err)))
	return DeviceFailed
}

func (r *Resolver) observe(method, result string) {
	if r.recorder != nil {
		r.recorder.Resolution(method, result)
	}
}

// GeoMessage maps a locator failure to a user-facing message.
func GeoMessage(err error) string {
	if errors.Is(err, ErrOutOfRange) {
		return MessageFailed
	}
	switch faults.KindOf(err) {
	case faults.KindPermissionDenied:
		return MessagePermissionDenied
	case faults.KindTimeout:
		return MessageTimeout
	case faults.KindUnavailable:
		return MessageUnavailable
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return MessageTimeout
		}
		return MessageFailed
	}
}
