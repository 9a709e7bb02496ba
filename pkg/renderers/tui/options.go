package tui

import (
	"io"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/astro"
	"github.com/goliatone/go-formflow/pkg/profile"
)

// Theme captures optional prefixes applied when printing messages. Keep
// minimal to avoid coupling flow logic to ANSI specifics.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultMaxAttempts bounds how often a form is prompted again after it was
// rejected.
const DefaultMaxAttempts = 3

// ChartFormatter renders a chart for display.
type ChartFormatter func(astro.Chart) (string, error)

// ProfileFormatter renders a user for display.
type ProfileFormatter func(profile.User) (string, error)

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(r *Runner) {
		r.out = out
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithMaxAttempts bounds the prompt rounds per form. Values below one are
// ignored.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithChartFormatter overrides how a fetched chart is printed.
func WithChartFormatter(fn ChartFormatter) Option {
	return func(r *Runner) {
		if fn != nil {
			r.chart = fn
		}
	}
}

// WithProfileFormatter overrides the banner printed before editing.
func WithProfileFormatter(fn ProfileFormatter) Option {
	return func(r *Runner) {
		if fn != nil {
			r.profile = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}
