package scraper

import (
	"errors"
	"fmt"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("request timed out")

// TimeoutError is returned when a request exceeds its deadline.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %s", e.URL)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NetworkError wraps transport-level failures and undecodable bodies.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
}

// UpstreamError is returned when an upstream answers 2xx but reports failure
// in its response envelope.
type UpstreamError struct {
	Source  string
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API: %s (code: %s)", e.Source, e.Message, e.Code)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
