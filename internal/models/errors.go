package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnreachable        = errors.New("could not reach the server")
	ErrRejected           = errors.New("rejected by server")
	ErrNotAuthorized      = errors.New("admin not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedResponse  = errors.New("unexpected response from server")
)

// ValidationError reports missing or malformed input. It is raised before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NetworkError means the request could not be sent or its response read
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return ErrUnreachable.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrUnreachable }

// ServerRejection is a non-2xx response. Message holds the "message" field of
// the error body when the server sent one.
type ServerRejection struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerRejection) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
}

func (e *ServerRejection) Is(target error) bool { return target == ErrRejected }

// MalformedResponseError is a 2xx response whose body could not be decoded.
// The server was reached; it just did not answer in the expected shape.
type MalformedResponseError struct {
	Op     string
	Status int
	Err    error
}

func (e *MalformedResponseError) Error() string { return ErrMalformedResponse.Error() }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// NotAuthorizedError is returned when an admin-only operation is attempted
// without an admin token
type NotAuthorizedError struct {
	Op string
}

func (e *NotAuthorizedError) Error() string { return ErrNotAuthorized.Error() }

func (e *NotAuthorizedError) Is(target error) bool { return target == ErrNotAuthorized }

// InvalidCredentialsError is returned when an existing account rejects the
// password given at sign-in
type InvalidCredentialsError struct {
	Message string
	Err     error
}

func (e *InvalidCredentialsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrInvalidCredentials.Error()
}

func (e *InvalidCredentialsError) Unwrap() error { return e.Err }

func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// AuthError wraps a failed sign-in or admin exchange. Use Unreachable to tell
// a transport failure from a server rejection.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// Unreachable reports whether the server could not be contacted at all
func (e *AuthError) Unreachable() bool { return errors.Is(e.Err, ErrUnreachable) }

// SubmissionError wraps a failed RSVP submission
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

// UpdateError wraps a failed RSVP status update
type UpdateError struct {
	Message string
	Err     error
}

func (e *UpdateError) Error() string { return e.Message }

func (e *UpdateError) Unwrap() error { return e.Err }

// UserMessage picks the text to show for a failed call: the server's own
// message when it sent one, a fixed text for transport failures and
// undecodable answers, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var rejection *ServerRejection
	if errors.As(err, &rejection) && rejection.Message != "" {
		return rejection.Message
	}
	if errors.Is(err, ErrUnreachable) {
		return ErrUnreachable.Error()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return ErrMalformedResponse.Error()
	}
	return fallback
}
