package voicevox

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable is returned when the engine cannot be reached or
	// the connection fails while reading the response.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamError matches any [StatusError].
	ErrUpstreamError = errors.New("upstream error")

	// ErrMalformedUpstreamResponse is returned when the response body is not
	// valid JSON of the expected shape or lacks a required field.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
)

// StatusError reports a non-2xx answer from the engine.
type StatusError struct {
	Endpoint   string
	StatusCode int

	// Body holds the beginning of the response body, if any.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("voicevox: GET %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("voicevox: GET %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUpstreamError) true for every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamError
}
