package astro

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLocator sets the device geolocation capability. Without one, device
// requests fail with the unavailable message.
func WithLocator(locator location.Locator) Option {
	return func(c *Controller) {
		c.locator = locator
	}
}

// WithSessionGuard shares the process-wide session guard.
func WithSessionGuard(guard *session.Guard) Option {
	return func(c *Controller) {
		c.guard = guard
	}
}

// WithCompletion registers the caller notification fired after a chart arrives.
func WithCompletion(fn submit.CompletionFunc) Option {
	return func(c *Controller) {
		c.onComplete = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder reports submissions.
func WithRecorder(recorder submit.Recorder) Option {
	return func(c *Controller) {
		c.recorder = recorder
	}
}

// WithLocationRecorder reports location resolutions.
func WithLocationRecorder(recorder location.Recorder) Option {
	return func(c *Controller) {
		c.locRecorder = recorder
	}
}
