package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for handler responses and caller retry decisions.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindCredential    Kind = "CREDENTIAL_ERROR"
	KindAuthz         Kind = "FORBIDDEN"
	KindNotFound      Kind = "NOT_FOUND"
	KindTransient     Kind = "TRANSIENT_ERROR"
	KindNotConfigured Kind = "NOT_CONFIGURED"
	KindAlreadyStored Kind = "ALREADY_STORED"
	KindInternal      Kind = "SERVICE_ERROR"
)

// Error is the error type returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func Credential(format string, args ...interface{}) *Error {
	return newf(KindCredential, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindAuthz, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func NotConfigured(format string, args ...interface{}) *Error {
	return newf(KindNotConfigured, format, args...)
}

func AlreadyStored(format string, args ...interface{}) *Error {
	return newf(KindAlreadyStored, format, args...)
}

// Transient wraps a network or upstream 5xx failure; the caller should retry
// on the next poll interval.
func Transient(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTransient, Message: fmt.Sprintf(format, args...), Err: err}
}

func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
