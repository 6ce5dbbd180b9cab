// Package schema turns Go structs into strict JSON schemas and validates agent
// output against them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNilSchema     = errors.New("schema is nil")
)

// Schema is a compiled, strict JSON schema describing one structured output shape.
// It is immutable after construction and safe for concurrent use.
type Schema struct {
	name     string
	raw      []byte
	compiled *gojsonschema.Schema
}

// ValidationError lists every way a document failed its schema.
type ValidationError struct {
	Schema string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match schema %s: %s", e.Schema, strings.Join(e.Errors, "; "))
}

// For reflects T into a strict schema: every field without omitempty is
// required and additional properties are rejected.
func For[T any]() (*Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, errors.New("cannot reflect schema for interface type")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Errorf("structured output must be a struct, got %s", t.Kind())
	}

	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(new(T))
	// providers reject meta keys in structured output schemas
	s.Version = ""
	s.ID = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	return FromJSON(strcase.ToSnake(t.Name()), raw)
}

// MustFor is For that panics; meant for package-level agent definitions.
func MustFor[T any]() *Schema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// FromJSON compiles a hand-written JSON schema.
func FromJSON(name string, raw []byte) (*Schema, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("schema name is empty")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", name)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &Schema{name: name, raw: cp, compiled: compiled}, nil
}

// Name is the snake_case schema name sent to the provider.
func (s *Schema) Name() string {
	return s.name
}

// JSON returns a copy of the schema document.
func (s *Schema) JSON() []byte {
	cp := make([]byte, len(s.raw))
	copy(cp, s.raw)
	return cp
}

// Map returns a freshly decoded copy of the schema document.
func (s *Schema) Map() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(s.raw, &m); err != nil {
		return nil, errors.Wrapf(err, "decode schema %s", s.name)
	}
	return m, nil
}

// Validate checks raw against the schema.
func (s *Schema) Validate(raw []byte) error {
	if s == nil {
		return ErrNilSchema
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyDocument
	}
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// not JSON at all
		return &ValidationError{Schema: s.name, Errors: []string{err.Error()}}
	}
	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}
		return &ValidationError{Schema: s.name, Errors: descriptions}
	}
	return nil
}

// Decode validates raw and decodes it into T.
func Decode[T any](s *Schema, raw []byte) (T, error) {
	var out T
	if err := s.Validate(raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrapf(err, "decode %s", s.name)
	}
	return out, nil
}
