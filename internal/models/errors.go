package models

import (
	"errors"
	"fmt"
)

// Domain-level errors
var (
	// ErrInvalidField is wrapped by every InvalidFieldError.
	ErrInvalidField = errors.New("invalid field value")

	// ErrIntegrityFault marks a self-contradictory dataset: two records share an id
	// but name different species.
	ErrIntegrityFault = errors.New("tree integrity fault")
)

// InvalidFieldError reports the first field that failed validation while
// constructing a TreeRecord.
type InvalidFieldError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, fmt.Sprint(e.Value), e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidField.
func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidField
}

// IntegrityError is returned by Equals when two records share an id but their
// species differ.
type IntegrityError struct {
	ID           int
	Species      string
	OtherSpecies string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("tree %d recorded as both %q and %q", e.ID, e.Species, e.OtherSpecies)
}

// Unwrap lets errors.Is match ErrIntegrityFault.
func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityFault
}
