package eventbrite

import (
	"errors"
	"fmt"
)

// ErrAuthentication matches every *AuthenticationError with errors.Is.
var ErrAuthentication = errors.New("eventbrite: authentication failed")

// AuthenticationError is returned when the token is missing or rejected.
type AuthenticationError struct {
	// StatusCode is 0 when no request was made.
	StatusCode  int
	Description string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrAuthentication.Error(), e.Description)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrAuthentication.Error(), e.StatusCode, e.Description)
}

func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// TransientError is a rate limit, server error or network failure, the same
// request may succeed if retried.
type TransientError struct {
	// StatusCode is 0 for network failures.
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("eventbrite: transient failure: %s", e.Err)
	}
	return fmt.Sprintf("eventbrite: transient failure (status %d): %s", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response cannot be understood.
type ProtocolError struct {
	Path   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("eventbrite: malformed response from %s: %s", e.Path, e.Reason)
}

// APIError is any other non-successful status, ex. an unknown event id.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eventbrite: request failed (status %d %s): %s", e.StatusCode, e.Code, e.Description)
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
