package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joshua-takyi/cleanbook/internal/access"
	"github.com/joshua-takyi/cleanbook/internal/models"
)

var (
	ErrTooManyFiles   = errors.New("too many files in one upload batch")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrSessionExpired = errors.New("session expired")
)

// ValidationError flags a single bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError is returned when an action is not legal from the
// booking's current status. The booking is left unchanged.
type InvalidTransitionError struct {
	From   models.BookingStatus
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a booking that is %s", e.Action, e.From)
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UploadError reports one file of a batch that was not stored.
type UploadError struct {
	File string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// storeErr translates repository errors into the service taxonomy.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, access.ErrMissingCapability):
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	default:
		return &StoreError{Op: op, Err: err}
	}
}

// require wraps the capability gate so callers get ErrForbidden.
func require(actor Actor, c access.Capability) error {
	if err := access.Require(actor.Caps, c); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return nil
}

// validationErr converts the first validator failure into a ValidationError.
func validationErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fieldName(fe), Message: fmt.Sprintf("failed %s validation", fe.Tag())}
	}
	return &ValidationError{Field: "body", Message: err.Error()}
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}
