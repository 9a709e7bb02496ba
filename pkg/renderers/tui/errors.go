package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoOptions is returned when a select prompt has nothing to offer.
	ErrNoOptions = errors.New("tui: select prompt without options")
	// ErrTooManyAttempts is returned when the form stays invalid after the
	// configured number of rounds.
	ErrTooManyAttempts = errors.New("tui: too many attempts")
)
