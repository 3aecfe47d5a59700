package firefly

import (
	"errors"
)

var (
	// ErrAuthentication is returned when the server answers 401
	ErrAuthentication = errors.New("authentication failed")

	// ErrMalformedResponse is returned for non-JSON bodies or bodies missing the expected envelope
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTimeout is returned when a single request exceeds its timeout
	ErrTimeout = errors.New("request timed out")

	// ErrConnection is returned when the server cannot be reached
	ErrConnection = errors.New("connection failed")

	// ErrServer is returned for a non-2xx status without a JSON body
	ErrServer = errors.New("unexpected server status")

	// ErrNotFound is returned when the server answers 404
	ErrNotFound = errors.New("resource not found")

	// ErrNotConnected is returned by CheckConnection when no version is reported
	ErrNotConnected = errors.New("server did not report a version")
)

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
