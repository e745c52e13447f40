package provider

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/famish99/multiroomd/internal/errdefs"
)

// FieldType is the value type of a provider_config field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
	TypeEnum   FieldType = "enum"
)

// Field describes one provider_config entry.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *int      `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *int      `json:"max,omitempty" yaml:"max,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

func intPtr(v int) *int { return &v }

// coerce converts cfg values in place to the types the schema declares.
// Values arrive as YAML scalars, JSON numbers or raw protocol strings.
// Keys the schema does not know are left untouched.
func coerce(schema []Field, cfg map[string]any) []errdefs.FieldError {
	var errs []errdefs.FieldError
	for _, f := range schema {
		v, ok := cfg[f.Name]
		if !ok || v == nil {
			if f.Required {
				errs = append(errs, errdefs.FieldError{Field: f.Name, Message: "is required"})
			}
			continue
		}

		switch f.Type {
		case TypeInt:
			n, err := toInt(v)
			if err != nil {
				errs = append(errs, errdefs.FieldError{Field: f.Name, Message: "must be an integer"})
				continue
			}
			if f.Min != nil && n < *f.Min || f.Max != nil && n > *f.Max {
				errs = append(errs, errdefs.FieldError{Field: f.Name, Message: rangeMessage(f)})
				continue
			}
			cfg[f.Name] = n

		case TypeBool:
			b, err := toBool(v)
			if err != nil {
				errs = append(errs, errdefs.FieldError{Field: f.Name, Message: "must be true or false"})
				continue
			}
			cfg[f.Name] = b

		case TypeEnum:
			s := strings.TrimSpace(fmt.Sprint(v))
			if !contains(f.Options, s) {
				errs = append(errs, errdefs.FieldError{
					Field:   f.Name,
					Message: fmt.Sprintf("must be one of %s", strings.Join(f.Options, ", ")),
				})
				continue
			}
			cfg[f.Name] = s

		default:
			s, isString := v.(string)
			if !isString {
				s = fmt.Sprint(v)
			}
			s = strings.TrimSpace(s)
			if f.Required && s == "" {
				errs = append(errs, errdefs.FieldError{Field: f.Name, Message: "is required"})
				continue
			}
			cfg[f.Name] = s
		}
	}
	return errs
}

func rangeMessage(f Field) string {
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("must be between %d and %d", *f.Min, *f.Max)
	case f.Min != nil:
		return fmt.Sprintf("must be at least %d", *f.Min)
	default:
		return fmt.Sprintf("must be at most %d", *f.Max)
	}
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not integral", t)
		}
		return int(t), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(t))
	}
	return false, fmt.Errorf("unsupported type %T", v)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// configInt reads an int field, falling back to def when it is missing or
// malformed.
func configInt(cfg map[string]any, key string, def int) int {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def
	}
	n, err := toInt(v)
	if err != nil {
		return def
	}
	return n
}

func configBool(cfg map[string]any, key string) bool {
	v, ok := cfg[key]
	if !ok || v == nil {
		return false
	}
	b, _ := toBool(v)
	return b
}

func configString(cfg map[string]any, key, def string) string {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}
