// Package failure defines the error kinds shared by the stores, the ledger and
// the transport layer. Every failure carries a Kind so callers can branch on it
// without parsing messages.
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidArgument   Kind = "invalid_argument"
	KindPartialFailure    Kind = "partial_failure"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error is a kinded error. Two Errors match under errors.Is when their kinds are
// equal and the target either has no message or the same message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kind-only sentinels, usable with errors.Is against any error of that kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrPartialFailure    = &Error{Kind: KindPartialFailure}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrConflict          = &Error{Kind: KindConflict}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. A nil err stays nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of the outermost kinded error in err's chain,
// or KindInternal when there is none. Errors outside this package may take
// part by implementing FailureKind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *Error:
			return v.Kind
		case interface{ FailureKind() Kind }:
			return v.FailureKind()
		}
	}
	// joined errors have no single Unwrap
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Retryable reports whether err may be retried transparently. Only store
// connectivity failures qualify.
func Retryable(err error) bool {
	return KindOf(err) == KindStoreUnavailable
}
