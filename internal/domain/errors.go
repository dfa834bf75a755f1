package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNoWorkAvailable  = errors.New("no work available")
	ErrSessionActive    = errors.New("session already active")
	ErrSessionNotActive = errors.New("no active session")
	ErrUnexpectedItem   = errors.New("item is not the current item")
	ErrNoActiveVisit    = errors.New("no active item visit")
	ErrUnknownStep      = errors.New("unknown step kind")
	ErrWorkItemNotFound = errors.New("work item not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
