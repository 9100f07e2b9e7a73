// Package apperr defines the error kinds surfaced across the fleet monitor.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference means a referenced entity, such as a sensor, does not exist.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidRequest means the input shape or event name is not recognized.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrValidation means a required field is missing or has the wrong type.
	ErrValidation = errors.New("validation error")
	// ErrModelUnavailable means a prediction artifact could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPersistence means the store failed a read or write.
	ErrPersistence = errors.New("persistence failure")
)

// Validation wraps ErrValidation with a field-level message.
func Validation(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}

// InvalidReference wraps ErrInvalidReference for an entity id.
func InvalidReference(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d not found", ErrInvalidReference, entity, id)
}

// Persistence wraps err as ErrPersistence unless it already carries a kind.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Classified reports whether err already carries one of the kinds above.
func Classified(err error) bool {
	return errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrPersistence)
}
