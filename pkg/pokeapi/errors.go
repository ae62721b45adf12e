package pokeapi

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNotFound is returned for any non-200 upstream answer. Unknown names
	// and upstream failures are deliberately reported the same way.
	ErrNotFound = errors.New("creature not found upstream")

	// ErrInvalidName is returned when the name is empty after normalization.
	ErrInvalidName = errors.New("invalid creature name")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx answers.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx answers.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassStatus represents other non-200 answers (1xx, 2xx, 3xx).
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassInvalidBody represents a 200 answer that is not JSON.
	ErrorClassInvalidBody ErrorClass = "invalid_body"
)

// classifyStatus maps a non-200 status code to its error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassStatus
	}
}

// RequestError represents a failed upstream exchange with additional context.
type RequestError struct {
	Name       string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pokeapi %s error for %q (status %d): %s: %v",
			e.Class, e.Name, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("pokeapi %s error for %q (status %d): %s",
		e.Class, e.Name, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}
