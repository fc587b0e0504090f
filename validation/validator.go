package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/mediaflow/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects failed checks on hand-built values, such as option
// maps, where struct tags do not apply. Checks chain:
//
//	err := validation.New().
//	    NotEmpty("streams", len(streams)).
//	    Custom(url != "" || format != "", "url", "url or format is required").
//	    Validate()
type Validator struct {
	errs []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

// Errors returns the failed checks in order.
func (v *Validator) Errors() []FieldError { return v.errs }

// Validate returns nil, or a validation AppError listing every failed check.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return fieldsError(v.errs)
}

// Custom records message for field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// Min checks that value is at least minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	return v.Custom(value >= minVal, field, fmt.Sprintf("must be at least %d", minVal))
}

// OneOf checks that value, when set, is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Custom(value == "" || slices.Contains(allowed, value), field,
		"must be one of: "+strings.Join(allowed, ", "))
}

// NotEmpty checks that a collection of the given length has an element.
func (v *Validator) NotEmpty(field string, length int) *Validator {
	return v.Custom(length > 0, field, "must not be empty")
}

// fieldsError builds the AppError shared by Validator and Validate.
func fieldsError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}
