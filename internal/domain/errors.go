package domain

import (
	"fmt"
	"net/http"
)

// APIError is the canonical gateway error. It serializes to the uniform
// envelope {"error": {"message", "type", "code"}} where code is the numeric
// HTTP status.
type APIError struct {
	// Status is the HTTP status code for this error.
	Status int

	// Message is the user-visible error message. For upstream failures it
	// carries the backend's own error text and nothing else.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type(), e.Message)
}

// Type returns the envelope error type: invalid_request_error for 4xx,
// api_error for everything else.
func (e *APIError) Type() string {
	if e.Status >= 400 && e.Status < 500 {
		return "invalid_request_error"
	}
	return "api_error"
}

// Envelope returns the wire representation of the error.
func (e *APIError) Envelope() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"message": e.Message,
			"type":    e.Type(),
			"code":    e.Status,
		},
	}
}

// ErrMissingKey indicates an absent or empty credential.
func ErrMissingKey() *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: "missing API key"}
}

// ErrInvalidKey indicates a credential not present in the policy store.
func ErrInvalidKey() *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: "invalid API key"}
}

// ErrModelNotAllowed indicates the key's policy does not permit the
// requested model.
func ErrModelNotAllowed(model string) *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("model %q is not allowed for this API key", model),
	}
}

// ErrRateLimited indicates the per-key rate budget is exhausted.
func ErrRateLimited(message string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Message: message}
}

// ErrValidation indicates a malformed request body.
func ErrValidation(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

// ErrMalformedUpstream indicates the backend produced output the
// transformer could not interpret.
func ErrMalformedUpstream(message string) *APIError {
	return &APIError{Status: http.StatusBadGateway, Message: message}
}

// ErrUpstream indicates a backend failure: connection errors and non-2xx
// statuses are surfaced uniformly as 502.
func ErrUpstream(message string) *APIError {
	return &APIError{Status: http.StatusBadGateway, Message: message}
}

// ErrForbidden indicates a rejected administrative credential.
func ErrForbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Message: message}
}

// ErrInternal indicates an unexpected gateway-side failure.
func ErrInternal(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message}
}
