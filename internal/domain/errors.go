package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEventType    = errors.New("invalid event type")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrInvalidPhone        = errors.New("invalid phone")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidMoney        = errors.New("invalid money")
	ErrInvalidURL          = errors.New("invalid url")
	ErrInvalidIPAddress    = errors.New("invalid ip address")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrCredentialsReadOnly = errors.New("credentials are read-only")
)

// InvalidEventTypeError is returned when a raw record carries a missing or unrecognized event type
type InvalidEventTypeError struct {
	Value string
}

func (e *InvalidEventTypeError) Error() string {
	if e.Value == "" {
		return "invalid event type: missing"
	}
	return fmt.Sprintf("invalid event type: %s", e.Value)
}

func (e *InvalidEventTypeError) Unwrap() error {
	return ErrInvalidEventType
}

// FieldError describes a single invalid field in a user supplied payload
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
