package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrValidationFailure   = errors.New("validation failure")
	ErrReservationConflict = errors.New("vehicle reservation conflict")
	ErrGatewayFailure      = errors.New("payment gateway failure")
	ErrCompensationFailure = errors.New("compensation failure")
	ErrSagaExecutionFailed = errors.New("saga execution failed")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrSagaNotFound        = errors.New("saga not found")
	ErrInvalidSaleState    = errors.New("invalid sale state")
)

// domainError ties a message and an optional cause to one of the sentinels above
type domainError struct {
	kind  error
	msg   string
	cause error
}

func (e *domainError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *domainError) Is(target error) bool {
	return target == e.kind
}

func (e *domainError) Unwrap() error {
	return e.cause
}

func (e *domainError) Cause() error {
	if e.cause == nil {
		return e.kind
	}
	return e.cause
}

// NewValidationFailure reports a business rule that stopped the sale
func NewValidationFailure(format string, args ...interface{}) error {
	return &domainError{kind: ErrValidationFailure, msg: fmt.Sprintf(format, args...)}
}

// NewVehicleUnavailable is returned both for a vehicle that is not available
// and for a reservation that lost the compare-and-set race
func NewVehicleUnavailable(vehicleID fmt.Stringer, cause error) error {
	return &domainError{
		kind:  ErrValidationFailure,
		msg:   fmt.Sprintf("vehicle %s is not available", vehicleID),
		cause: cause,
	}
}

// NewGatewayFailure wraps an error returned by the payment gateway
func NewGatewayFailure(cause error) error {
	return &domainError{kind: ErrGatewayFailure, msg: "payment gateway failure", cause: cause}
}

// NewCompensationFailure wraps an error raised while undoing a step
func NewCompensationFailure(step SagaStep, cause error) error {
	return &domainError{
		kind:  ErrCompensationFailure,
		msg:   fmt.Sprintf("compensation of %s failed", step),
		cause: cause,
	}
}

// NewSagaExecutionFailed wraps an infrastructure or gateway failure surfaced by the orchestrator
func NewSagaExecutionFailed(cause error) error {
	return &domainError{kind: ErrSagaExecutionFailed, msg: "saga execution failed", cause: cause}
}

// NewInvalidSaleState reports an operation the sale's current status does not allow
func NewInvalidSaleState(saleStatus SaleStatus, operation string) error {
	return &domainError{
		kind: ErrInvalidSaleState,
		msg:  fmt.Sprintf("cannot %s a sale in status %s", operation, saleStatus),
	}
}

// IsBusinessFailure reports failures that end a sale without being errors of the system
func IsBusinessFailure(err error) bool {
	return errors.Is(err, ErrValidationFailure) || errors.Is(err, ErrReservationConflict)
}
