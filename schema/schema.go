// Package schema validates collection documents against a JSON Schema subset.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Schema is the supported subset of JSON Schema (draft-07):
//   - type (string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items
//   - minimum, maximum
//   - minLength, maxLength
//   - enum
type Schema struct {
	Type                 string             `json:"type,omitempty" yaml:"type,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Enum                 []any              `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// ValidationError reports the first violation found in a document.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks doc against s. A nil schema accepts everything.
func (s *Schema) Validate(doc map[string]any) error {
	if s == nil {
		return nil
	}
	return s.validate(doc, "$")
}

func (s *Schema) validate(value any, path string) error {
	if s.Type != "" {
		if err := checkType(s.Type, value, path); err != nil {
			return err
		}
	}
	if len(s.Enum) > 0 {
		if err := s.checkEnum(value, path); err != nil {
			return err
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return s.validateObject(v, path)
	case []any:
		if s.Items == nil {
			return nil
		}
		for i, elem := range v {
			if err := s.Items.validate(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case string:
		if s.MinLength != nil && len(v) < *s.MinLength {
			return fail(path, "string length %d is less than minLength %d", len(v), *s.MinLength)
		}
		if s.MaxLength != nil && len(v) > *s.MaxLength {
			return fail(path, "string length %d is greater than maxLength %d", len(v), *s.MaxLength)
		}
	default:
		if n, ok := toFloat(value); ok {
			if s.Minimum != nil && n < *s.Minimum {
				return fail(path, "%v is less than minimum %v", n, *s.Minimum)
			}
			if s.Maximum != nil && n > *s.Maximum {
				return fail(path, "%v is greater than maximum %v", n, *s.Maximum)
			}
		}
	}
	return nil
}

func (s *Schema) validateObject(obj map[string]any, path string) error {
	for _, field := range s.Required {
		if _, ok := obj[field]; !ok {
			return fail(path, "missing required field %q", field)
		}
	}

	// Walk properties in a stable order so the reported error is deterministic.
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		val, ok := obj[name]
		if !ok || s.Properties[name] == nil {
			continue
		}
		if err := s.Properties[name].validate(val, path+"."+name); err != nil {
			return err
		}
	}

	if s.AdditionalProperties != nil && !*s.AdditionalProperties {
		var extra []string
		for field := range obj {
			if _, ok := s.Properties[field]; !ok {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return fail(path, "additional properties not allowed: %s", strings.Join(extra, ", "))
		}
	}
	return nil
}

func checkType(expected string, value any, path string) error {
	actual := jsonType(value)
	switch {
	case actual == expected:
		return nil
	case expected == "number" && actual == "integer":
		return nil
	case expected == "integer" && actual == "number":
		if f, ok := toFloat(value); ok && f == float64(int64(f)) {
			return nil
		}
	}
	return fail(path, "expected type %q, got %q", expected, actual)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64, json.Number:
		return "number"
	case int, int32, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func (s *Schema) checkEnum(value any, path string) error {
	for _, allowed := range s.Enum {
		if reflect.DeepEqual(normalize(allowed), normalize(value)) {
			return nil
		}
	}
	return fail(path, "value not in enum %v", s.Enum)
}

// normalize folds numeric kinds so that enum values decoded from YAML (int)
// compare equal to document values decoded from JSON (float64).
func normalize(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
