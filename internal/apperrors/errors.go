// Package apperrors defines the error taxonomy shared by the feed core.
// Handlers map these onto HTTP statuses; the core never retries them.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates a bad or missing required field on construction,
// or an otherwise malformed request parameter.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidExpirationError indicates an expiration time at or before creation,
// or one that could not be parsed as epoch milliseconds.
type InvalidExpirationError struct {
	Msg string
}

func (e *InvalidExpirationError) Error() string { return e.Msg }

// MissingVerbError indicates a verb lookup key that is not registered.
type MissingVerbError struct {
	Key string
}

func (e *MissingVerbError) Error() string {
	return fmt.Sprintf("verb %q not found", e.Key)
}

// MissingLevelError indicates a level lookup key that is not registered.
type MissingLevelError struct {
	Key string
}

func (e *MissingLevelError) Error() string {
	return fmt.Sprintf("level %q not found", e.Key)
}

// DuplicateRegistrationError indicates a registry collision on an id or a
// string form during startup registration.
type DuplicateRegistrationError struct {
	Msg string
}

func (e *DuplicateRegistrationError) Error() string { return e.Msg }

// InvalidNotificationError indicates a serialized notification payload that
// cannot be decoded back into a Notification.
type InvalidNotificationError struct {
	Msg string
}

func (e *InvalidNotificationError) Error() string { return e.Msg }

// NotFoundError covers both "does not exist" and "exists but is not visible
// to the requesting recipient". The two are deliberately indistinguishable.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NewNotFound builds a NotFoundError with a formatted message.
func NewNotFound(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a backing-store read or write failure. The core attempts
// each write at most once; retry policy belongs to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NameResolutionError indicates an external name-lookup collaborator failure.
// A user-view projection must abort rather than return a partial view.
type NameResolutionError struct {
	Msg string
	Err error
}

func (e *NameResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *NameResolutionError) Unwrap() error { return e.Err }

// ConfigError indicates a problem with the service configuration.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// InvalidTokenError indicates an auth token that failed validation.
type InvalidTokenError struct {
	Msg string
}

func (e *InvalidTokenError) Error() string {
	if e.Msg == "" {
		return "invalid token"
	}
	return e.Msg
}

// MissingTokenError indicates a request that needs a token but carried none.
type MissingTokenError struct{}

func (e *MissingTokenError) Error() string { return "authentication token required" }

// HTTPStatus maps a core error onto the equivalent HTTP status code.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		expiration *InvalidExpirationError
		verb       *MissingVerbError
		level      *MissingLevelError
		badNote    *InvalidNotificationError
		notFound   *NotFoundError
		badToken   *InvalidTokenError
		noToken    *MissingTokenError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &expiration),
		errors.As(err, &verb),
		errors.As(err, &level),
		errors.As(err, &badNote):
		return 400
	case errors.As(err, &noToken):
		return 401
	case errors.As(err, &badToken):
		return 403
	case errors.As(err, &notFound):
		return 404
	default:
		return 500
	}
}
