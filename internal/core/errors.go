// Package core provides shared types and errors for the article service.
package core

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeUpstream indicates an upstream API error (5xx)
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeRateLimit indicates a rate limit error (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates an authentication error (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
)

// ServiceError is the base error type for all service errors
type ServiceError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Upstream   string    `json:"upstream,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Upstream, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ServiceError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *ServiceError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewUpstreamError creates a new upstream error (5xx from a dependency)
func NewUpstreamError(upstream string, statusCode int, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Upstream:   upstream,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// ParseUpstreamError parses an error response body from an upstream API and
// returns an appropriate ServiceError.
func ParseUpstreamError(upstream string, statusCode int, body []byte, originalErr error) *ServiceError {
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		message = errorResponse.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ServiceError{
			Type:       ErrorTypeAuthentication,
			Message:    message,
			StatusCode: http.StatusUnauthorized,
			Upstream:   upstream,
			Err:        originalErr,
		}
	case statusCode == http.StatusTooManyRequests:
		return &ServiceError{
			Type:       ErrorTypeRateLimit,
			Message:    message,
			StatusCode: http.StatusTooManyRequests,
			Upstream:   upstream,
			Err:        originalErr,
		}
	case statusCode >= 400 && statusCode < 500:
		return &ServiceError{
			Type:       ErrorTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Upstream:   upstream,
			Err:        originalErr,
		}
	default:
		return NewUpstreamError(upstream, http.StatusBadGateway, message, originalErr)
	}
}
