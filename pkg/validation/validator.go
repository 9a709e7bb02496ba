package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/form"
)

// Issue is a single validation failure with the field it belongs to.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result captures validation outcomes in rule order.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Messages returns the issue messages in rule order.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		out = append(out, issue.Message)
	}
	return out
}

// For returns the messages attached to field.
func (r Result) For(field string) []string {
	var out []string
	for _, issue := range r.Issues {
		if issue.Field == field {
			out = append(out, issue.Message)
		}
	}
	return out
}

// Has reports whether message is part of the result.
func (r Result) Has(message string) bool {
	for _, issue := range r.Issues {
		if issue.Message == message {
			return true
		}
	}
	return false
}

// Rule inspects a snapshot and reports at most one issue.
type Rule func(form.Snapshot) (Issue, bool)

// Validator runs rules in declared order. It holds no state between calls.
type Validator struct {
	rules []Rule
}

// New builds a validator; nil rules are ignored.
func New(rules ...Rule) Validator {
	v := Validator{rules: make([]Rule, 0, len(rules))}
	for _, rule := range rules {
		if rule != nil {
			v.rules = append(v.rules, rule)
		}
	}
	return v
}

// Validate maps snapshot to a deterministic result.
func (v Validator) Validate(snapshot form.Snapshot) Result {
	result := Result{Valid: true}
	for _, rule := range v.rules {
		issue, failed := rule(snapshot)
		if !failed {
			continue
		}
		result.Issues = append(result.Issues, issue)
	}
	result.Valid = len(result.Issues) == 0
	return result
}

// emailPattern accepts a local part, an at-sign and a domain containing a dot.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// IsEmail reports whether value looks like an email address.
func IsEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// Required fails when field is blank.
func Required(field, message string) Rule {
	return func(s form.Snapshot) (Issue, bool) {
		if s.Trimmed(field) == "" {
			return Issue{Field: field, Message: message}, true
		}
		return Issue{}, false
	}
}

// Email fails when field is non-empty and not an email address. Blank values
// are left to Required so each input produces one message.
func Email(field, message string) Rule {
	return func(s form.Snapshot) (Issue, bool) {
		value := s.Trimmed(field)
		if value == "" || IsEmail(value) {
			return Issue{}, false
		}
		return Issue{Field: field, Message: message}, true
	}
}

// RequiredEmail combines Required and Email so exactly one of the two messages
// is reported for a field.
func RequiredEmail(field, requiredMessage, formatMessage string) Rule {
	required := Required(field, requiredMessage)
	format := Email(field, formatMessage)
	return func(s form.Snapshot) (Issue, bool) {
		if issue, failed := required(s); failed {
			return issue, true
		}
		return format(s)
	}
}

// Date fails when field is non-empty and not a DateLayout date.
func Date(field, message string) Rule {
	return layout(field, form.DateLayout, message)
}

// Clock fails when field is non-empty and not a TimeLayout time of day.
func Clock(field, message string) Rule {
	return layout(field, form.TimeLayout, message)
}

func layout(field, layout, message string) Rule {
	return func(s form.Snapshot) (Issue, bool) {
		if v, ok := s.Get(field); ok {
			if _, isTime := v.(time.Time); isTime {
				return Issue{}, false
			}
		}
		value := s.Trimmed(field)
		if value == "" {
			return Issue{}, false
		}
		if _, err := time.Parse(layout, value); err != nil {
			return Issue{Field: field, Message: message}, true
		}
		return Issue{}, false
	}
}

// Between fails when field is non-empty and not a finite number in [min, max].
func Between(field string, min, max float64, message string) Rule {
	return func(s form.Snapshot) (Issue, bool) {
		raw := s.Trimmed(field)
		if raw == "" {
			return Issue{}, false
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < min || n > max {
			return Issue{Field: field, Message: message}, true
		}
		return Issue{}, false
	}
}

// OneOf fails when field is not one of options.
func OneOf(field string, options []string, message string) Rule {
	allowed := make(map[string]struct{}, len(options))
	for _, option := range options {
		allowed[strings.TrimSpace(option)] = struct{}{}
	}
	return func(s form.Snapshot) (Issue, bool) {
		if _, ok := allowed[s.Trimmed(field)]; ok {
			return Issue{}, false
		}
		return Issue{Field: field, Message: message}, true
	}
}

// LockedWhen fails when flag is true and field differs from locked(). It backs
// capability flags such as an externally managed email address.
func LockedWhen(flag, field string, locked func() string, message string) Rule {
	return func(s form.Snapshot) (Issue, bool) {
		if !s.Bool(flag) || locked == nil {
			return Issue{}, false
		}
		if !strings.EqualFold(s.Trimmed(field), strings.TrimSpace(locked())) {
			return Issue{Field: field, Message: message}, true
		}
		return Issue{}, false
	}
}
