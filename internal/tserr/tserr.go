// Package tserr defines the typed error kinds shared across every
// subsystem, so callers can branch on failure class without parsing
// messages.
package tserr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error classification.
type Kind string

const (
	TransportError     Kind = "TransportError"
	RequestRejected    Kind = "RequestRejected"
	CorruptMessage     Kind = "CorruptMessage"
	TypeConflict       Kind = "TypeConflict"
	OverlappingDomain  Kind = "OverlappingDomain"
	EmptyAggregate     Kind = "EmptyAggregate"
	StaticSizeExceeded Kind = "StaticSizeExceeded"
	UnknownColumn      Kind = "UnknownColumn"
	RowOutOfRange      Kind = "RowOutOfRange"
	Cancelled          Kind = "Cancelled"
	DeadlineExceeded   Kind = "DeadlineExceeded"
	ConfigInvalid      Kind = "ConfigInvalid"
)

// Error wraps an underlying error with a Kind and the subsystem that
// raised it: every error carries an originating subsystem tag and a
// machine-readable kind code in addition to a human message.
type Error struct {
	Kind      Kind
	Subsystem string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Subsystem, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Subsystem, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error from a subsystem, kind, and format string.
func New(subsystem string, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Subsystem: subsystem, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a Kind and subsystem tag to an existing error. Returns nil
// if err is nil.
func Wrap(subsystem string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Subsystem: subsystem, Err: err}
}

// Is reports whether err (or any error it wraps) carries kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
