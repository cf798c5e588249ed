package client

import (
	"errors"
	"io"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorClass
	}{
		{200, ""},
		{304, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.code); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "status error",
			err: &APIError{
				ErrorClass: ErrorClassClient,
				Endpoint:   "/api/character",
				StatusCode: 404,
				Message:    "There is nothing here",
			},
			expected: "client error (status 404) /api/character: There is nothing here",
		},
		{
			name: "network error with cause",
			err: &APIError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   "/api/character",
				Message:    "request failed",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "network error /api/character: request failed: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		class   ErrorClass
		network bool
		parse   bool
		status  bool
	}{
		{ErrorClassNetwork, true, false, false},
		{ErrorClassParse, false, true, false},
		{ErrorClassClient, false, false, true},
		{ErrorClassServer, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			var err error = &APIError{ErrorClass: tt.class}
			if errors.Is(err, ErrNetwork) != tt.network {
				t.Errorf("errors.Is(ErrNetwork) = %v", !tt.network)
			}
			if errors.Is(err, ErrParse) != tt.parse {
				t.Errorf("errors.Is(ErrParse) = %v", !tt.parse)
			}
			if errors.Is(err, ErrStatus) != tt.status {
				t.Errorf("errors.Is(ErrStatus) = %v", !tt.status)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	err := &APIError{ErrorClass: ErrorClassNetwork, Err: io.EOF}
	if !errors.Is(err, io.EOF) {
		t.Error("APIError should unwrap to its cause")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) || apiErr.ErrorClass != ErrorClassNetwork {
		t.Error("errors.As should find *APIError")
	}
}
