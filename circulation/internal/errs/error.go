package errs

import (
	"errors"
	"fmt"
)

// Kinds. Every concrete error below matches exactly one of them via errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrStateConflict    = errors.New("state conflict")
	ErrValidation       = errors.New("validation error")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrBookNotFound = newError(ErrNotFound, "book not found")
	ErrLoanNotFound = newError(ErrNotFound, "loan not found")

	ErrOutOfStock          = newError(ErrStateConflict, "book is out of stock")
	ErrBookWithdrawn       = newError(ErrStateConflict, "book is withdrawn")
	ErrLoanAlreadyReturned = newError(ErrStateConflict, "loan already returned")
	ErrNoOutstandingLoan   = newError(ErrStateConflict, "no outstanding loan")
	ErrDuplicateID         = newError(ErrStateConflict, "book id already exists")
	ErrBookHasLoans        = newError(ErrStateConflict, "book is referenced by loan records")

	ErrInvalidInput  = newError(ErrValidation, "invalid input")
	ErrDueDateInPast = newError(ErrValidation, "due date is in the past")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Invalid wraps ErrInvalidInput with a description of the offending input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable marks a connectivity or transaction failure. Nil stays nil and
// errors that already carry a kind are returned as is.
func Unavailable(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Kind returns the kind sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrStateConflict, ErrValidation, ErrStoreUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
