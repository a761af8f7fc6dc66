// Package domain defines the core domain models for Reileta.
package domain

import (
	"errors"
	"fmt"
)

// ErrorMessage is a typed platform error with a stable numeric code,
// a human-readable message, and a suggested transport status. Errors
// cross component boundaries as values, never as panics, and the same
// shape is serialized inside federation response envelopes.
type ErrorMessage struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Status  int    `json:"status"`
	Details string `json:"-"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *ErrorMessage) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ErrorMessage) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ErrorMessage with the same code.
func (e *ErrorMessage) Is(target error) bool {
	t, ok := target.(*ErrorMessage)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of the error with additional details.
func (e *ErrorMessage) WithDetails(details string) *ErrorMessage {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *ErrorMessage) WithCause(cause error) *ErrorMessage {
	c := *e
	c.Cause = cause
	return &c
}

// NewErrorMessage creates a new ErrorMessage.
func NewErrorMessage(code int, message string, status int) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Status: status}
}

// AsErrorMessage extracts an ErrorMessage from err, if it carries one.
func AsErrorMessage(err error) (*ErrorMessage, bool) {
	var em *ErrorMessage
	if errors.As(err, &em) {
		return em, true
	}
	return nil, false
}

// CodeOf returns the numeric code of err, or 0 when err is not an
// ErrorMessage.
func CodeOf(err error) int {
	if em, ok := AsErrorMessage(err); ok {
		return em.Code
	}
	return 0
}

// The platform error taxonomy. Codes are part of the federation wire
// contract and must stay stable across servers.
var (
	ErrServiceDisabled          = NewErrorMessage(1, "Service disabled", 503)
	ErrRequestNotFound          = NewErrorMessage(2, "Request not found", 404)
	ErrUserNotLogged            = NewErrorMessage(3, "User not logged", 403)
	ErrUserDontHavePermission   = NewErrorMessage(4, "User don't have permission", 403)
	ErrServerNotFound           = NewErrorMessage(5, "Server not found", 403)
	ErrNoResponseFromServer     = NewErrorMessage(6, "No response from server", 503)
	ErrNoDataFromServer         = NewErrorMessage(7, "No data from server", 503)
	ErrBadDataFromServer        = NewErrorMessage(8, "Bad data from server", 503)
	ErrBadRedirectionFromServer = NewErrorMessage(9, "Bad redirection from server", 503)

	// ErrRetryWithNewGateway is an internal federation signal: the peer
	// asks the caller to retry once against its freshly advertised
	// gateways. Never surfaced to clients.
	ErrRetryWithNewGateway = NewErrorMessage(10, "Retry with new gateway", 307)

	ErrBadStructureFromServer = NewErrorMessage(11, "Bad structure from server", 503)
	ErrUserCannotUpdate       = NewErrorMessage(12, "User cannot update", 403)
	ErrRequestNotImplemented  = NewErrorMessage(13, "Request not implemented", 501)
	ErrUserInvalidInput       = NewErrorMessage(14, "User invalid input", 400)
	ErrUserAlreadyConnected   = NewErrorMessage(15, "User already connected", 403)
	ErrInternalError          = NewErrorMessage(16, "Internal error", 500)
	ErrUserNotFound           = NewErrorMessage(17, "User not found", 404)
	ErrUserCannotFetch        = NewErrorMessage(18, "User cannot fetch", 403)
	ErrUserCannotDelete       = NewErrorMessage(19, "User cannot be deleted", 403)
	ErrSessionNotFound        = NewErrorMessage(20, "Session not found", 404)
	ErrSessionInvalidInput    = NewErrorMessage(21, "Session invalid input", 400)
	ErrAuthInvalidInput       = NewErrorMessage(22, "Auth invalid input", 400)
	ErrAuthInvalidLogin       = NewErrorMessage(23, "Auth invalid login", 401)
	ErrWorldInvalidInput      = NewErrorMessage(24, "World invalid input", 400)
	ErrWorldNotFound          = NewErrorMessage(25, "World not found", 404)
	ErrNotImplemented         = NewErrorMessage(28, "Not implemented", 501)
	ErrServerInvalidInput     = NewErrorMessage(29, "Server invalid input", 400)
	ErrInstanceInvalidInput   = NewErrorMessage(33, "Instance invalid input", 400)
	ErrIntegrityInvalidInput  = NewErrorMessage(34, "Integrity invalid input", 400)
	ErrIntegrityNotFound      = NewErrorMessage(35, "Integrity not found", 404)
	ErrInstanceNotFound       = NewErrorMessage(36, "Instance not found", 404)
	ErrTagNotFound            = NewErrorMessage(38, "Tag not found", 403)
	ErrNotInInstance          = NewErrorMessage(39, "Not in instance", 403)
	ErrObjectNotInternal      = NewErrorMessage(41, "Object not internal", 403)
	ErrInstanceAlreadyExists  = NewErrorMessage(47, "Instance already exists", 409)
	ErrInstanceIsFull         = NewErrorMessage(48, "Instance is full", 409)
	ErrUserNotAllowed         = NewErrorMessage(49, "User not allowed", 403)
	ErrPlayerNotFound         = NewErrorMessage(50, "Player not found", 404)
)
