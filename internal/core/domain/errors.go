package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotificationFailed = errors.New("notification failed")
	ErrValidation         = errors.New("validation failed")
	ErrStore              = errors.New("store failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenAlreadyUsed   = errors.New("token already used")
	ErrForbidden          = errors.New("access forbidden")
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotificationError is returned when an account write succeeded but the
// follow-up token issuance or message delivery did not. Stage is either
// "token" or "delivery".
type NotificationError struct {
	AccountID int64
	Stage     string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s for account %d (%s): %v", ErrNotificationFailed, e.AccountID, e.Stage, e.Err)
}

func (e *NotificationError) Unwrap() []error { return []error{ErrNotificationFailed, e.Err} }

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }
