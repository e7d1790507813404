package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every structured error below matches exactly one of them through errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("scheduling conflict")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvariantViolation  = errors.New("invariant violation")
)

// IsDomainError reports whether err carries one of the error kinds above
func IsDomainError(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrInsufficientBalance, ErrInvariantViolation} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// ValidationError malformed or out-of-range input
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError referenced entity is missing or soft-deleted
type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFoundError(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("%d", id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictAxis resource dimension on which a booking collided
type ConflictAxis string

const (
	AxisStaff      ConflictAxis = "staff"
	AxisService    ConflictAxis = "service"
	AxisConcurrent ConflictAxis = "concurrent" // lost a race against another transaction
	AxisNoStaff    ConflictAxis = "no_staff"   // no eligible staff member could take the slot
)

// ConflictError overlapping booking on the staff or service axis
type ConflictError struct {
	Axis                     ConflictAxis
	ConflictingAppointmentID int64
	StaffID                  *int64
	ServiceID                int64
}

func NewConcurrencyConflict() *ConflictError {
	return &ConflictError{Axis: AxisConcurrent}
}

func (e *ConflictError) Error() string {
	switch e.Axis {
	case AxisConcurrent:
		return "scheduling conflict: concurrent booking won the race, choose the slot again"
	case AxisNoStaff:
		return fmt.Sprintf("scheduling conflict: no staff available for service %d", e.ServiceID)
	default:
		return fmt.Sprintf("scheduling conflict on %s axis with appointment %d", e.Axis, e.ConflictingAppointmentID)
	}
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidTransitionError illegal state machine edge
type InvalidTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// BalanceUnit what an InsufficientBalanceError is measured in
type BalanceUnit string

const (
	UnitSessions BalanceUnit = "sessions"
	UnitMinutes  BalanceUnit = "minutes"
	UnitMoney    BalanceUnit = "money"
)

// InsufficientBalanceError deduction or payment exceeds what is left
type InsufficientBalanceError struct {
	PackageID int64
	Unit      BalanceUnit
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on package %d: requested %s %s, remaining %s",
		e.PackageID, e.Requested.String(), e.Unit, e.Remaining.StringFixed(e.precision()))
}

func (e *InsufficientBalanceError) precision() int32 {
	if e.Unit == UnitMoney {
		return 2
	}
	return 0
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// InvariantViolationError stored data breaks a rule the code relies on
type InvariantViolationError struct {
	Entity string
	ID     int64
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s %d: %s", e.Entity, e.ID, e.Detail)
}

func (e *InvariantViolationError) Is(target error) bool { return target == ErrInvariantViolation }
