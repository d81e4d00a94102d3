package delivery

import (
	"errors"
	"fmt"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// RetryableError is a delivery failure the queue should attempt again
type RetryableError struct {
	Platform domain.Platform
	Reason   string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %s", e.Platform, e.Reason)
}

// PermanentError is a task that can never succeed, such as an undecodable payload
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err asks for another queue attempt
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
