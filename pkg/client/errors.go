package client

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against an *APIError.
var (
	// ErrNetwork reports a transport failure: no usable response arrived.
	ErrNetwork = errors.New("network error")

	// ErrParse reports a response body that does not have the expected shape.
	ErrParse = errors.New("parse error")

	// ErrStatus reports a non-2xx HTTP status.
	ErrStatus = errors.New("unexpected status")
)

// ErrorClass classifies a failed request.
type ErrorClass string

const (
	// ErrorClassNetwork is a transport failure (dial, TLS, reset, cancelled context).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse is a body that cannot be decoded.
	ErrorClassParse ErrorClass = "parse"

	// ErrorClassClient is a 4xx response.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer is a 5xx response.
	ErrorClassServer ErrorClass = "server"
)

// APIError is returned by every fetch method of Client.
type APIError struct {
	ErrorClass ErrorClass
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var msg string
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s error (status %d) %s: %s", e.ErrorClass, e.StatusCode, e.Endpoint, e.Message)
	} else {
		msg = fmt.Sprintf("%s error %s: %s", e.ErrorClass, e.Endpoint, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error class.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.ErrorClass == ErrorClassNetwork
	case ErrParse:
		return e.ErrorClass == ErrorClassParse
	case ErrStatus:
		return e.ErrorClass == ErrorClassClient || e.ErrorClass == ErrorClassServer
	default:
		return false
	}
}

// classifyStatus maps an HTTP status to an error class, or "" for success.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 500:
		return ErrorClassServer
	case code >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}
