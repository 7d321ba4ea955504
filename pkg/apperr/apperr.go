// Package apperr defines the error kinds shared by both services and their
// translation to transport status codes. A kind survives wrapping and is
// tested with errors.Is; two errors of the same kind stay distinct.
package apperr

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

var (
	Validation        = errors.New("kind: validation")
	NotFound          = errors.New("kind: not found")
	CapacityExhausted = errors.New("kind: capacity exhausted")
	Communication     = errors.New("kind: communication")
	Internal          = errors.New("kind: internal")
)

var kinds = []error{Validation, NotFound, CapacityExhausted, Communication}

type kindError struct {
	cause error
	kind  error
}

func (e *kindError) Error() string        { return e.cause.Error() }
func (e *kindError) Unwrap() error        { return e.cause }
func (e *kindError) Is(target error) bool { return target == e.kind }

// New returns a leaf error carrying kind.
func New(kind error, msg string) error {
	return &kindError{cause: errors.NewWithDepth(1, msg), kind: kind}
}

// Wrap annotates err with msg and tags the result with kind.
func Wrap(err error, kind error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{cause: errors.WrapWithDepth(1, err, msg), kind: kind}
}

// KindOf returns the first kind err is marked with, or Internal.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return Internal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case CapacityExhausted:
		return http.StatusConflict
	case Communication:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Title is the short, client-facing label for the kind of err.
func Title(err error) string {
	switch KindOf(err) {
	case Validation:
		return "Validation failed"
	case NotFound:
		return "Not found"
	case CapacityExhausted:
		return "Class is fully booked"
	case Communication:
		return "Service communication error"
	default:
		return "Internal server error"
	}
}
