package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")
	ErrUnauthenticated  = errors.New("authentication credentials were not provided")
	ErrDuplicateReview  = errors.New("you have already reviewed this title")
	ErrUnknownUser      = errors.New("user not found")
	ErrInvalidCode      = errors.New("invalid confirmation code")
)

// Validation codes carried by ValidationError.
const (
	CodeInvalid           = "Invalid"
	CodeReservedName      = "ReservedName"
	CodeInvalidCharacter  = "InvalidCharacter"
	CodeDuplicateUsername = "DuplicateUsername"
	CodeDuplicateEmail    = "DuplicateEmail"
)

// ValidationError reports bad input as field -> messages.
type ValidationError struct {
	Code   string
	Fields map[string][]string
}

func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Fields: map[string][]string{field: {message}}}
}

// Add records another message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return fmt.Sprintf("%s: %s", e.Code, strings.Join(parts, ", "))
}

// DeliveryError means the confirmation mail could not be handed to the notifier.
// The account is kept, so the caller may simply sign up again.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "confirmation code delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
