package client

import (
	"errors"
	"fmt"
)

var (
	ErrLoginFailed         = errors.New("login failed")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrSenderNotConfigured = errors.New("sender phone number is not configured")
	ErrInvalidAreaCode     = errors.New("area code is not offered by the sms form")
	// ErrBlocked is returned for every request after the site answered 403/429
	// or kept failing with 5xx.
	ErrBlocked = errors.New("requests halted by safety guard")
)

// TransportError is a failed exchange with the site: a network error, a
// timeout or an error status code.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
