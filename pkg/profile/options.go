package profile

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Option configures a Controller.
type Option func(*Controller)

// WithCountryService enables the country selector.
func WithCountryService(svc CountryService) Option {
	return func(c *Controller) {
		c.countrySvc = svc
	}
}

// WithSessionGuard shares the process-wide session guard.
func WithSessionGuard(guard *session.Guard) Option {
	return func(c *Controller) {
		c.guard = guard
	}
}

// WithCompletion registers the caller notification fired after a successful
// update.
func WithCompletion(fn submit.CompletionFunc) Option {
	return func(c *Controller) {
		c.onComplete = fn
	}
}

// WithUser seeds the form from an already known user, so the form is usable
// before Mount returns.
func WithUser(user User) Option {
	return func(c *Controller) {
		u := user
		c.seed = &u
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
