// Package validation checks run configuration before any work starts.
package validation

import (
	"errors"
	"fmt"
	"slices"
)

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string // config section name for error messages
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

func (cv *ConfigValidator) addf(field, format string, args ...any) *ConfigValidator {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %s", cv.name, field, fmt.Sprintf(format, args...)))
	return cv
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		return cv.addf(field, "required field is empty")
	}
	return cv
}

// MinInt validates that an int field is at least the minimum value.
func (cv *ConfigValidator) MinInt(field string, value, min int) *ConfigValidator {
	if value < min {
		return cv.addf(field, "value %d is below minimum %d", value, min)
	}
	return cv
}

// MaxInt validates that an int field does not exceed the maximum value.
func (cv *ConfigValidator) MaxInt(field string, value, max int) *ConfigValidator {
	if value > max {
		return cv.addf(field, "value %d exceeds maximum %d", value, max)
	}
	return cv
}

// Probability validates that a float lies in (0, 1].
func (cv *ConfigValidator) Probability(field string, value float64) *ConfigValidator {
	if !(value > 0 && value <= 1) {
		return cv.addf(field, "probability %v is outside (0, 1]", value)
	}
	return cv
}

// NotEmpty validates that a slice field has at least one element.
func (cv *ConfigValidator) NotEmpty(field string, n int) *ConfigValidator {
	if n == 0 {
		return cv.addf(field, "at least one value is required")
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if !slices.Contains(allowed, value) {
		return cv.addf(field, "value %q must be one of %v", value, allowed)
	}
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors returns true if any validation errors occurred.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate joins every collected error, or returns nil.
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errors...)
}

// Validatable is an interface for types that can validate themselves.
type Validatable interface {
	Validate() error
}

// ValidateConfig validates any type that implements Validatable.
func ValidateConfig(config Validatable) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	return config.Validate()
}

// DefaultOrInt returns the value if it's positive, otherwise returns the default.
func DefaultOrInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}
