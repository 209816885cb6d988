package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrActionRejected is returned when an action endpoint answers success=false.
	ErrActionRejected = errors.New("action rejected by server")
	// ErrSyntheticID is returned when a locally derived id would be sent to the server.
	ErrSyntheticID = errors.New("job has a synthetic id")
	// ErrNotFound is returned when a job does not exist.
	ErrNotFound = errors.New("job not found")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NetworkError is an unreachable host, a reset connection, or a timeout.
type NetworkError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError is a body that is not JSON or does not have the expected shape.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NormalizationError is a record missing an unrecoverable field.
type NormalizationError struct {
	Index  int
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record %d: %s", e.Index, e.Reason)
}
