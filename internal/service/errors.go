package service

import (
	"errors"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// ErrNotFound is returned when an application has no credentials record
var ErrNotFound = errors.New("not found")

// IsValidationError reports whether err was caused by invalid caller input
func IsValidationError(err error) bool {
	var fieldErr *domain.FieldError
	if errors.As(err, &fieldErr) {
		return true
	}
	for _, target := range []error{
		domain.ErrInvalidEventType,
		domain.ErrUnknownPlatform,
		domain.ErrInvalidEmail,
		domain.ErrInvalidPhone,
		domain.ErrInvalidCurrency,
		domain.ErrInvalidMoney,
		domain.ErrInvalidURL,
		domain.ErrInvalidIPAddress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
