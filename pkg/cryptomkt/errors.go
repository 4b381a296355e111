package cryptomkt

import "fmt"

// TransportError is returned when no HTTP response could be obtained
// (network, DNS, TLS or timeout failures).
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodingError is returned when the response body is not valid JSON or
// does not have the expected envelope shape.
type DecodingError struct {
	Endpoint   string
	HTTPStatus int
	Body       []byte
	Err        error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("%s: failed to decode response (HTTP %d): %v", e.Endpoint, e.HTTPStatus, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// APIError is returned when the envelope was decoded but its status code
// is not 200.
type APIError struct {
	Endpoint   string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error [%d]: %s", e.Endpoint, e.Code, e.Message)
}

// AuthError is returned when an authenticated endpoint is called on a
// client without credentials.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: API key and secret are required for this endpoint", e.Endpoint)
}

// ValidationError is returned for invalid or missing arguments, before
// any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
