package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/faults"
)

// Legacy session messages. They are only compared here, and only by exact
// match. Any other wording is session-relevant only through a 401.
const (
	legacyExpired      = "Token expired"
	legacyUnauthorized = "Unauthorized"
)

// formLevelKey collects server messages that do not belong to a field.
const formLevelKey = "_form"

// StatusError records the HTTP status behind a fault.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

type errorPayload struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// classify converts an error response into a fault.
func classify(status int, body []byte) error {
	message, fields := parseErrorBody(body)
	cause := &StatusError{Code: status}

	switch {
	case message == legacyExpired:
		return faults.Wrap(faults.KindExpiredToken, message, cause)
	case message == legacyUnauthorized:
		return faults.Wrap(faults.KindUnauthorized, message, cause)
	case status == http.StatusUnauthorized:
		if message == "" {
			message = legacyUnauthorized
		}
		return faults.Wrap(faults.KindUnauthorized, message, cause)
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		fault := faults.Wrap(faults.KindServerValidation, message, cause)
		fault.Fields = fields
		return fault
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return faults.Wrap(faults.KindTimeout, message, cause)
	default:
		return faults.Wrap(faults.KindTransport, message, cause)
	}
}

// parseErrorBody reads a JSON error payload, or a short plain-text body as the
// message.
func parseErrorBody(body []byte) (string, map[string][]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", nil
	}

	var payload errorPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		var plain string
		if json.Unmarshal([]byte(trimmed), &plain) == nil {
			return strings.TrimSpace(plain), nil
		}
		if strings.HasPrefix(trimmed, "<") || len(trimmed) > 200 {
			return "", nil
		}
		return trimmed, nil
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		message = strings.TrimSpace(payload.Error)
	}
	return message, mapFieldErrors(payload.Errors)
}

// mapFieldErrors accepts {"path": "msg"}, {"path": ["msg"]} and
// [{"field": "path", "message": "msg"}] and keys the messages by field name.
func mapFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string)

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		for path, value := range keyed {
			addMessages(out, path, decodeMessages(value)...)
		}
	} else {
		var list []struct {
			Field   string `json:"field"`
			Path    string `json:"path"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		for _, item := range list {
			path := item.Field
			if path == "" {
				path = item.Path
			}
			addMessages(out, path, item.Message)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeMessages(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func addMessages(dest map[string][]string, path string, messages ...string) {
	key := fieldKey(path)
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		duplicate := false
		for _, existing := range dest[key] {
			if existing == trimmed {
				duplicate = true
				break
			}
		}
		if !duplicate {
			dest[key] = append(dest[key], trimmed)
		}
	}
}

// fieldKey reduces JSON pointer, dotted and bracketed paths to the form field
// name, dropping request wrappers and array indexes.
func fieldKey(path string) string {
	segments := pathSegments(path)
	segments = dropWrapperSegments(segments)
	segments = stripNumericSegments(segments)
	if len(segments) == 0 {
		return formLevelKey
	}
	switch strings.ToLower(segments[0]) {
	case "_form", "form", "base", "non_field_errors", "__all__":
		return formLevelKey
	}
	return strings.Join(segments, ".")
}

func pathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	clean = strings.TrimLeft(clean, "#/.$")

	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"user":       {},
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 1 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}
