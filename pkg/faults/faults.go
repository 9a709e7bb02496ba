package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure raised while validating or submitting a form.
type Kind string

const (
	// KindFieldValidation is a local validation failure. It never reaches a
	// remote collaborator.
	KindFieldValidation Kind = "field_validation"
	// KindExpiredToken signals an expired session token.
	KindExpiredToken Kind = "expired_token"
	// KindUnauthorized signals a rejected session.
	KindUnauthorized Kind = "unauthorized"
	// KindTransport covers network failures and unavailable servers.
	KindTransport Kind = "transport"
	// KindServerValidation is a remote rejection of well-formed input.
	KindServerValidation Kind = "server_validation"

	// KindPermissionDenied is raised by a locator when the user refuses access.
	KindPermissionDenied Kind = "permission_denied"
	// KindTimeout is raised by a locator that did not answer in time.
	KindTimeout Kind = "timeout"
	// KindUnavailable is raised when no geolocation capability exists.
	KindUnavailable Kind = "unavailable"
)

// Fault is the structured error shared by every collaborator adapter.
type Fault struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for server validation failures.
	Fields map[string][]string
	Err    error
}

// New returns a fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: strings.TrimSpace(message)}
}

// Wrap returns a fault of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: strings.TrimSpace(message), Err: err}
}

// Session returns an expired-token or unauthorized fault.
func Session(kind Kind, message string) *Fault {
	if kind != KindExpiredToken {
		kind = KindUnauthorized
	}
	return New(kind, message)
}

func (f *Fault) Error() string {
	if f == nil {
		return "<nil>"
	}
	switch {
	case f.Message != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return string(f.Kind)
	}
}

func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Is matches faults by kind so callers can write errors.Is(err, faults.New(kind, "")).
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) || other == nil || f == nil {
		return false
	}
	return other.Kind == f.Kind
}

// KindOf extracts the fault kind from err. Unknown errors are treated as
// transport failures so no failure goes unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fault *Fault
	if errors.As(err, &fault) && fault != nil && fault.Kind != "" {
		return fault.Kind
	}
	return KindTransport
}

// IsSession reports whether err is a session fault.
func IsSession(err error) bool {
	switch KindOf(err) {
	case KindExpiredToken, KindUnauthorized:
		return true
	default:
		return false
	}
}

// MessageOf returns the user-facing message carried by err, or fallback when the
// error carries no message.
func MessageOf(err error, fallback string) string {
	var fault *Fault
	if errors.As(err, &fault) && fault != nil {
		if msg := strings.TrimSpace(fault.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// FieldMessages returns the per-field messages carried by a server validation fault.
func FieldMessages(err error) map[string][]string {
	var fault *Fault
	if errors.As(err, &fault) && fault != nil && len(fault.Fields) > 0 {
		out := make(map[string][]string, len(fault.Fields))
		for k, v := range fault.Fields {
			out[k] = append([]string(nil), v...)
		}
		return out
	}
	return nil
}
