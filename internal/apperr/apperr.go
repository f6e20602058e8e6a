// Package apperr defines the typed failures every operation reports to its
// caller. Handlers translate them into the response envelope.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInsufficientStock
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Shortfall describes a stock request that batches could not cover.
type Shortfall struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Shortfall   int    `json:"shortfall"`
}

type Error struct {
	Kind      Kind
	Message   string
	Fields    map[string]string
	Shortfall *Shortfall
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports field level input errors.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Please fix the highlighted fields", Fields: fields}
}

// Invalid reports a single input problem that is not tied to one field.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized means the caller is not (or no longer) signed in.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(s Shortfall) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("Insufficient stock for '%s': requested %d, available %d (short by %d)", s.ProductName, s.Requested, s.Available, s.Shortfall),
		Shortfall: &s,
	}
}

// Internal wraps an unexpected infrastructure failure. The message shown to
// users never includes err.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong on our side, please try again", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Wrap passes typed errors through and turns anything else into Internal.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Internal(err)
}
