// Package apperrors holds the domain error vocabulary shared by the catalog,
// reservation, lifecycle and check-in services. Every structured error matches
// its sentinel through errors.Is so handlers can map them without type switches.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotOnSale             = errors.New("ticket class not on sale")
	ErrStaleState            = errors.New("order state changed")
	ErrAlreadyCheckedIn      = errors.New("ticket already checked in")
	ErrInvalidStatus         = errors.New("order status does not allow this action")
	ErrRetryable             = errors.New("temporarily unavailable, retry")
)

// ValidationError lists every field problem found in one request.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, problem string) {
	e.Fields[field] = problem
}

// OrNil returns nil when no field problem was recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, problem := range e.Fields {
		parts = append(parts, field+": "+problem)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a single-field validation error.
func Invalid(field, problem string) error {
	v := NewValidationError()
	v.Add(field, problem)
	return v
}

// CapacityFloorError is returned when capacity would drop below units already sold.
type CapacityFloorError struct {
	Requested int
	NetSold   int
}

func (e *CapacityFloorError) Error() string {
	return fmt.Sprintf("capacity %d is below the %d units already sold", e.Requested, e.NetSold)
}

func (e *CapacityFloorError) Is(target error) bool { return target == ErrConflict }

// ClassInUseError blocks deletion of a class that has sold units.
type ClassInUseError struct {
	ClassID string
	NetSold int
}

func (e *ClassInUseError) Error() string {
	return fmt.Sprintf("ticket class %s has %d units sold and cannot be deleted", e.ClassID, e.NetSold)
}

func (e *ClassInUseError) Is(target error) bool { return target == ErrConflict }

// InsufficientInventoryError reports how many units were left when a claim failed.
type InsufficientInventoryError struct {
	ClassID   string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("ticket class %s has %d units available, %d requested", e.ClassID, e.Available, e.Requested)
}

func (e *InsufficientInventoryError) Is(target error) bool { return target == ErrInsufficientInventory }

// TransitionError is returned to the loser of a status race, or to a caller
// asking for a move the lifecycle does not allow.
// CheckedIn marks an admitted order, which can no longer release its units.
type TransitionError struct {
	OrderID   string
	Current   string
	Target    string
	CheckedIn bool
}

func (e *TransitionError) Error() string {
	if e.CheckedIn {
		return fmt.Sprintf("order %s is %s and checked in, it cannot become %s", e.OrderID, e.Current, e.Target)
	}
	return fmt.Sprintf("order %s is %s and cannot become %s", e.OrderID, e.Current, e.Target)
}

func (e *TransitionError) Is(target error) bool { return target == ErrStaleState }

type InvalidStatusError struct {
	TicketCode string
	Status     string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("ticket %s is %s and cannot be checked in", e.TicketCode, e.Status)
}

func (e *InvalidStatusError) Is(target error) bool { return target == ErrInvalidStatus }

// AlreadyCheckedInError carries the timestamp of the first admission.
type AlreadyCheckedInError struct {
	TicketCode  string
	CheckedInAt time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("ticket %s already checked in at %s", e.TicketCode, e.CheckedInAt.UTC().Format(time.RFC3339))
}

func (e *AlreadyCheckedInError) Is(target error) bool { return target == ErrAlreadyCheckedIn }

// RetryableError wraps a transient storage or lock failure that outlasted
// the retry budget.
type RetryableError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

func (e *RetryableError) Is(target error) bool { return target == ErrRetryable }
