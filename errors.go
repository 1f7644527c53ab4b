package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the auth API rejects a login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied is returned when the account exists but is blocked
	// (PENDING, REJECTED or SUSPENDED). It is not retryable.
	ErrAccessDenied = errors.New("account access denied")
	// ErrTransport is returned when the auth API could not be reached.
	ErrTransport = errors.New("auth api unreachable")
	// ErrInvalidInput is returned when credentials or registration data fail local validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLoginRateLimited is returned when login attempts exceed the client-side budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRegistrationFailed is returned when the auth API rejects a registration.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrNoRefreshToken is reported when a refresh is attempted with no refresh token held.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshRejected is reported when the auth API rejects a refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrStaleResult is reported when an in-flight result arrives after the session moved on.
	ErrStaleResult = errors.New("stale session result discarded")
	// ErrManagerNotReady is returned by methods called on a nil or unbuilt Manager.
	ErrManagerNotReady = errors.New("session manager not initialized")
)

// APIError is what an AuthClient returns when the server answered but
// refused the request. Anything else returned by an AuthClient is treated
// as a transport failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("auth api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("auth api error (status %d): %s", e.StatusCode, e.Message)
}

func apiErrorMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Message, true
	}
	return "", false
}
