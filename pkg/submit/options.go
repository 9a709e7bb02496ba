package submit

import (
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/session"
)

// Option configures a Submitter.
type Option func(*Submitter)

// WithRefresh runs fn after a successful call. A refresh error fails the
// submission.
func WithRefresh(fn RefreshFunc) Option {
	return func(s *Submitter) {
		s.refresh = fn
	}
}

// WithCompletion registers the caller notification fired once per success.
func WithCompletion(fn CompletionFunc) Option {
	return func(s *Submitter) {
		s.onComplete = fn
	}
}

// WithSessionGuard shares the process-wide session guard.
func WithSessionGuard(guard *session.Guard) Option {
	return func(s *Submitter) {
		s.guard = guard
	}
}

// WithFallbackMessage sets the message used when a failure carries none.
func WithFallbackMessage(message string) Option {
	return func(s *Submitter) {
		if trimmed := strings.TrimSpace(message); trimmed != "" {
			s.fallback = trimmed
		}
	}
}

// WithSuccessMessage sets the banner shown after a successful submission.
func WithSuccessMessage(message string) Option {
	return func(s *Submitter) {
		s.success = strings.TrimSpace(message)
	}
}

// WithSessionHint overrides the hint appended to session fault messages.
func WithSessionHint(hint string) Option {
	return func(s *Submitter) {
		if trimmed := strings.TrimSpace(hint); trimmed != "" {
			s.hint = trimmed
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder reports finished attempts to recorder.
func WithRecorder(recorder Recorder) Option {
	return func(s *Submitter) {
		s.recorder = recorder
	}
}

// WithStateListener is called on every state transition.
func WithStateListener(fn func(State)) Option {
	return func(s *Submitter) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}
