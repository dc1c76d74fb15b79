// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Application error sentinels. Every typed error below unwraps to one of these,
// so callers can branch with errors.Is without caring about the detail type.
var (
	ErrNotFound = errors.New("not found")

	// Generation errors.
	ErrConfiguration           = errors.New("configuration error")
	ErrConstraintUnsatisfiable = errors.New("constraint unsatisfiable")

	// Classification errors.
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// ConfigurationError reports a malformed or contradictory input parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError creates a configuration error for the given field.
func NewConfigurationError(field, format string, args ...any) error {
	return &ConfigurationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// ConstraintUnsatisfiableError is returned when a sequencing constraint could not
// be met within the bounded repair budget.
type ConstraintUnsatisfiableError struct {
	Constraint string
	Detail     string
	Attempts   int
}

func (e *ConstraintUnsatisfiableError) Error() string {
	return fmt.Sprintf("%v: %s: %s (after %d attempts)", ErrConstraintUnsatisfiable, e.Constraint, e.Detail, e.Attempts)
}

func (e *ConstraintUnsatisfiableError) Unwrap() error {
	return ErrConstraintUnsatisfiable
}

// InsufficientDataError is returned when a category population is below the
// minimum epoch count required for resampling.
type InsufficientDataError struct {
	Channel  string
	Category string
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: channel %s has %d %s epochs, need at least %d",
		ErrInsufficientData, e.Channel, e.Have, e.Category, e.Need)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// NumericDegeneracyError reports a population that cannot support the statistic,
// such as zero variance or non-finite samples.
type NumericDegeneracyError struct {
	Channel  string
	Category string
	Detail   string
}

func (e *NumericDegeneracyError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("%v: channel %s: %s", ErrNumericDegeneracy, e.Channel, e.Detail)
	}
	return fmt.Sprintf("%v: channel %s (%s): %s", ErrNumericDegeneracy, e.Channel, e.Category, e.Detail)
}

func (e *NumericDegeneracyError) Unwrap() error {
	return ErrNumericDegeneracy
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
