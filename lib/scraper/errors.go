package scraper

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCategory = errors.New("category not supported by platform")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrSessionClosed       = errors.New("session closed")
	ErrFetchPanicked       = errors.New("fetch panicked")
)

// SessionSetupError is a transport or http failure during login.
type SessionSetupError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SessionSetupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("session setup against %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("session setup against %s failed: %v", e.URL, e.Err)
}

func (e *SessionSetupError) Unwrap() error {
	return e.Err
}

// AuthenticationError means login went through at the transport level but
// no usable bearer token could be extracted from the response.
type AuthenticationError struct {
	URL    string
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication against %s failed: %s", e.URL, e.Reason)
}

// FetchTransportError is a network, http, timeout or decoding failure on a
// single category endpoint.
type FetchTransportError struct {
	Category   Category
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchTransportError) Error() string {
	msg := fmt.Sprintf("fetch %s", e.Category)
	if e.URL != "" {
		msg += fmt.Sprintf(" from %s", e.URL)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *FetchTransportError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborts a whole run rather than one category.
func IsFatal(err error) bool {
	var setupErr *SessionSetupError
	var authErr *AuthenticationError
	return errors.As(err, &setupErr) || errors.As(err, &authErr)
}
