package services

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrGatewayAuth         = errors.New("payment gateway authentication failed")
	ErrInvalidResponse     = errors.New("invalid payment gateway response")
	ErrLinkCreation        = errors.New("payment link creation failed")
	ErrNotFound            = errors.New("not found")
	ErrTransientNetwork    = errors.New("transient network error")
	ErrValidation          = errors.New("validation failed")
	ErrWebhookAuthenticity = errors.New("webhook authenticity check failed")
	ErrAmountMismatch      = errors.New("paid amount does not match booking amount")
	ErrReferenceRejected   = errors.New("payment reference rejected")
)

// GatewayError describes a failed call to the payment provider
type GatewayError struct {
	Kind       error  // one of the kinds above
	Op         string // authenticate, create_link, get_transaction
	StatusCode int    // 0 when no response was received
	Body       string // truncated provider response
	Err        error  // underlying cause, may be nil
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports whether target is the error kind
func (e *GatewayError) Is(target error) bool {
	return e.Kind == target
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ValidationError lists the fields of a rejected booking intent
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid booking intent: %v", e.Fields)
}

// Is makes errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsRetryable reports whether the caller may retry the operation later
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}
