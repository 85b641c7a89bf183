package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/httpapi/errors"
)

// Validator collects field errors for checks that struct tags cannot
// express.
type Validator struct {
	errors []FieldError
}

// FieldError is a validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// Merge adds the field errors of err, if it is a validation AppError, or
// err itself under field otherwise.
func (v *Validator) Merge(field string, err error) *Validator {
	if err == nil {
		return v
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if fields, ok := appErr.Details["fields"].([]FieldError); ok {
			for _, f := range fields {
				name := f.Field
				if field != "" {
					name = field + "." + name
				}
				v.AddError(name, f.Message)
			}
			return v
		}
		v.AddError(field, appErr.Message)
		return v
	}
	v.AddError(field, err.Error())
	return v
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an INVALID_INPUT AppError if any check failed.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": v.errors}
	return appErr
}

// Required checks that a string is not blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// URL checks that a non-empty string is an absolute http(s) URL.
func (v *Validator) URL(field, value string) *Validator {
	if value != "" && !IsHTTPURL(value) {
		v.AddError(field, "must be an absolute http(s) URL")
	}
	return v
}

// URIPrefix checks that a string can key a prefix lookup.
func (v *Validator) URIPrefix(field, value string) *Validator {
	if !IsURIPrefix(value) {
		v.AddError(field, `must be "*", a path starting with "/", or an absolute URL`)
	}
	return v
}

// OneOf checks that a non-empty value is one of allowed, ignoring case.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Positive checks that a set duration is greater than zero.
func (v *Validator) Positive(field string, value *time.Duration) *Validator {
	if value != nil && *value <= 0 {
		v.AddError(field, "must be greater than 0")
	}
	return v
}

// NonNegative checks that an int is zero or more.
func (v *Validator) NonNegative(field string, value int) *Validator {
	if value < 0 {
		v.AddError(field, "must be at least 0")
	}
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// Required validates a single required field and returns an error if empty.
func Required(field, value string) error {
	if appErr := New().Required(field, value).Validate(); appErr != nil {
		return appErr
	}
	return nil
}
