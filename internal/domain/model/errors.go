package model

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by RemoteFetchError when a successful
// response carries a body that cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response body")

// RemoteFetchError reports that the GitHub API answered with a status other
// than 200 OK. It is terminal for the container that issued the request.
type RemoteFetchError struct {
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// TransportError reports that a request never produced an HTTP response
// (DNS failure, refused connection, transport timeout, canceled context).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError reports a missing or malformed container attribute.
type ConfigError struct {
	Attribute string
	Value     string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("attribute %s=%q %s", e.Attribute, e.Value, e.Reason)
	}
	return fmt.Sprintf("attribute %s %s", e.Attribute, e.Reason)
}

// StatusCodeOf returns the upstream status code carried by err, or 0 when err
// is not a RemoteFetchError.
func StatusCodeOf(err error) int {
	var rfe *RemoteFetchError
	if errors.As(err, &rfe) {
		return rfe.StatusCode
	}
	return 0
}
