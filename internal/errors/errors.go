package errors

import (
	"errors"
	"fmt"
)

// Common error types for the insights dashboard
var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionIncomplete = errors.New("session incomplete")

	// Authorization errors
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidState = errors.New("invalid oauth state")

	// Request errors
	ErrNoPageSelected = errors.New("no page selected")
	ErrInvalidWindow  = errors.New("invalid date window")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Stage identifies which part of a metrics fetch failed.
type Stage string

const (
	StageToken Stage = "token"
	StageQuery Stage = "query"
)

// AuthError reports a missing, invalid or expired credential during login,
// page listing or page token resolution.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string { return describe(e.Op, e.Message, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed metrics fetch. Stage distinguishes a page token
// failure from an analytics query failure.
type FetchError struct {
	Op      string
	Stage   Stage
	Message string
	Err     error
}

func (e *FetchError) Error() string { return describe(e.Op, e.Message, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports bad caller input such as a malformed date window.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
func (e *ValidationError) Unwrap() error { return e.Err }

func describe(op, message string, err error) string {
	msg := message
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if op == "" {
		return msg
	}
	return op + ": " + msg
}

// NewAuthError builds an AuthError, taking its message from err when none is given.
func NewAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Message: messageOf(err), Err: err}
}

// NewFetchError builds a FetchError for the given stage.
func NewFetchError(op string, stage Stage, err error) *FetchError {
	return &FetchError{Op: op, Stage: stage, Message: messageOf(err), Err: err}
}

// NewValidationError builds a ValidationError wrapping one of the sentinels.
func NewValidationError(field, message string, sentinel error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: sentinel}
}

// Upstream messages are preferred over the wrapping chain
type upstreamMessager interface {
	UpstreamMessage() string
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	var um upstreamMessager
	if errors.As(err, &um) {
		if m := um.UpstreamMessage(); m != "" {
			return m
		}
	}
	return err.Error()
}

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsFetch reports whether err is, or wraps, a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
