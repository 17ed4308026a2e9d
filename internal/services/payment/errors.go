package payment

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service matches exactly one of these
// under errors.Is.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrGateway       = errors.New("gateway error")
	ErrPersistence   = errors.New("persistence error")
)

// ServiceError represents a payment service error
type ServiceError struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment service %s: %s (%v)", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("payment service %s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(op string, kind error, msg string, cause error) *ServiceError {
	return &ServiceError{Op: op, Kind: kind, Message: msg, Err: cause}
}

// Message returns the caller-facing message of err, or fallback when err is
// not a ServiceError.
func Message(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
