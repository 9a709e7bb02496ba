// Package contract holds the OpenAPI description of the remote services and
// checks payloads against its component schemas.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Component schema names used by the HTTP adapters.
const (
	UserEnvelope      = "UserEnvelope"
	UpdateUserRequest = "UpdateUserRequest"
	BirthDetails      = "BirthDetails"
	ChartEnvelope     = "ChartEnvelope"
	CountryList       = "CountryList"
	ErrorPayload      = "Error"
)

var (
	// ErrUnknownSchema is returned for schema names missing from the document.
	ErrUnknownSchema = errors.New("contract: unknown schema")
	// ErrViolation wraps every payload that does not match its schema.
	ErrViolation = errors.New("contract: payload violates schema")
)

//go:embed openapi.yaml
var document []byte

// Contract validates payloads against a loaded OpenAPI document.
type Contract struct {
	doc *openapi3.T
}

var (
	defaultOnce     sync.Once
	defaultContract *Contract
	defaultErr      error
)

// Default returns the embedded contract, loaded once.
func Default() (*Contract, error) {
	defaultOnce.Do(func() {
		defaultContract, defaultErr = Load(context.Background(), document)
	})
	return defaultContract, defaultErr
}

// Load parses and validates an OpenAPI document.
func Load(ctx context.Context, raw []byte) (*Contract, error) {
	if len(raw) == 0 {
		return nil, errors.New("contract: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("contract: validate document: %w", err)
	}
	return &Contract{doc: doc}, nil
}

// Schemas lists the component schema names.
func (c *Contract) Schemas() []string {
	if c == nil || c.doc == nil || c.doc.Components == nil {
		return nil
	}
	names := make([]string, 0, len(c.doc.Components.Schemas))
	for name := range c.doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks value, after a JSON round trip, against the named schema. A
// nil contract accepts everything.
func (c *Contract) Validate(schema string, value any) error {
	if c == nil || c.doc == nil {
		return nil
	}
	ref, ok := c.doc.Components.Schemas[schema]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("contract: encode %s: %w", schema, err)
	}
	return c.ValidateJSON(schema, raw)
}

// ValidateJSON checks an encoded payload against the named schema.
func (c *Contract) ValidateJSON(schema string, raw []byte) error {
	if c == nil || c.doc == nil {
		return nil
	}
	ref, ok := c.doc.Components.Schemas[schema]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrViolation, schema, err)
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrViolation, schema, err)
	}
	return nil
}
