// Package errors defines Innisfree's error taxonomy.
//
// Every fallible operation in the core returns an *Error carrying one of
// the Kinds below, so the CLI layer and the lifecycle supervisor can
// decide how to react (full cleanup, plain surface, silent retry) without
// string-matching messages.
package errors

import "fmt"

// Kind classifies the cause of an Error.
type Kind string

const (
	// Config covers missing environment variables, malformed flags, and
	// unknown subcommands.
	Config Kind = "config"
	// Network covers provider HTTP failures, DNS, and dial timeouts.
	Network Kind = "network"
	// Provider covers HTTP status >= 400 or unparseable JSON from a
	// cloud provider API.
	Provider Kind = "provider"
	// Subprocess covers wg-quick, ssh, ping, and wg non-zero exits or a
	// missing executable.
	Subprocess Kind = "subprocess"
	// Template covers YAML/template render failures.
	Template Kind = "template"
	// LocalIO covers config directory and key file write failures.
	LocalIO Kind = "local_io"
	// Cancelled covers an interrupt signal aborting the run.
	Cancelled Kind = "cancelled"
)

// Error is the concrete error type returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given Kind wrapping cause. If cause is
// nil, Wrap returns nil so it can be used directly in a return statement.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
