// Package schema validates generated JSON against the embedded stage schemas
// and decodes it into typed values.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

// Name identifies one of the embedded schemas.
type Name string

const (
	Profile    Name = "profile"
	Evaluation Name = "evaluation"
	Email      Name = "email"
)

//go:embed definitions/*.json
var definitions embed.FS

var (
	compiled   = map[Name]*gojsonschema.Schema{}
	compiledMu sync.Mutex
)

// ValidationError lists every field that did not match the schema.
type ValidationError struct {
	Schema Name
	Errors []FieldError
}

// FieldError is a single mismatch at a field path.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s schema validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

// LoadError reports a missing or malformed embedded schema.
type LoadError struct {
	Schema Name
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %v", e.Schema, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Source returns the raw schema document.
func Source(name Name) (string, error) {
	data, err := definitions.ReadFile("definitions/" + string(name) + ".json")
	if err != nil {
		return "", &LoadError{Schema: name, Cause: err}
	}
	return string(data), nil
}

// Instruction returns the output contract appended to stage prompts.
func Instruction(name Name) (string, error) {
	src, err := Source(name)
	if err != nil {
		return "", err
	}
	return "Respond with a single JSON object and nothing else. " +
		"Every property listed below must be present; use null for unknown values.\n" +
		"JSON Schema:\n" + src, nil
}

// Decode validates raw and decodes it into out, which must be a pointer.
// It returns the keys present in raw that out has no field for.
func Decode(name Name, raw string, out any) ([]string, error) {
	doc, err := parse(name, raw)
	if err != nil {
		return nil, err
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Metadata: &md,
		Result:   out,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s decoder: %w", name, err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	sort.Strings(md.Unused)
	return md.Unused, nil
}

func parse(name Name, raw string) (any, error) {
	s, err := load(name)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return nil, &ValidationError{
			Schema: name,
			Errors: []FieldError{{Field: "(root)", Message: "invalid JSON: " + err.Error()}},
		}
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &ValidationError{
			Schema: name,
			Errors: []FieldError{{Field: "(root)", Message: err.Error()}},
		}
	}
	if result.Valid() {
		return doc, nil
	}

	verr := &ValidationError{Schema: name, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return nil, verr
}

func load(name Name) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}

	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, &LoadError{Schema: name, Cause: err}
	}
	compiled[name] = s
	return s, nil
}
