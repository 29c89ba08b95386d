package batchexecute

import (
	"encoding/json"
	"fmt"
)

// ErrorType represents different categories of API errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeNotFound
	ErrorTypeInvalidInput
	ErrorTypePermissionDenied
	ErrorTypeServerError
	ErrorTypeUnavailable
)

// String returns the string representation of the ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeAuthentication:
		return "Authentication"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeNotFound:
		return "NotFound"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypePermissionDenied:
		return "PermissionDenied"
	case ErrorTypeServerError:
		return "ServerError"
	case ErrorTypeUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// ErrorCode describes a numeric status the service returns in place of a payload.
type ErrorCode struct {
	Code      int
	Type      ErrorType
	Message   string
	Retryable bool
}

// APIError represents a parsed API error response
type APIError struct {
	ErrorCode *ErrorCode
	RPCID     string
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorCode != nil {
		return fmt.Sprintf("API error %d (%s): %s", e.ErrorCode.Code, e.ErrorCode.Type, e.ErrorCode.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// Unwrap maps authentication failures onto ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.ErrorCode != nil && e.ErrorCode.Type == ErrorTypeAuthentication {
		return ErrUnauthorized
	}
	return nil
}

// IsRetryable returns true if the error can be retried
func (e *APIError) IsRetryable() bool {
	return e.ErrorCode != nil && e.ErrorCode.Retryable
}

// errorCodes maps numeric status codes to their definitions. The small
// codes follow google.rpc.Code.
var errorCodes = map[int]ErrorCode{
	3:      {3, ErrorTypeInvalidInput, "Invalid argument", false},
	5:      {5, ErrorTypeNotFound, "Not found", false},
	7:      {7, ErrorTypePermissionDenied, "Permission denied", false},
	8:      {8, ErrorTypeRateLimit, "Resource exhausted", true},
	13:     {13, ErrorTypeServerError, "Internal error", true},
	14:     {14, ErrorTypeUnavailable, "Service unavailable", true},
	143:    {143, ErrorTypeNotFound, "Resource not found", false},
	277566: {277566, ErrorTypeAuthentication, "Authentication required", false},
	277567: {277567, ErrorTypeAuthentication, "Authentication token expired", false},
	324934: {324934, ErrorTypeRateLimit, "Rate limit exceeded", true},
}

// GetErrorCode returns the ErrorCode for a given numeric code
func GetErrorCode(code int) (*ErrorCode, bool) {
	ec, ok := errorCodes[code]
	if !ok {
		return nil, false
	}
	return &ec, true
}

// IsErrorResponse reports whether response carries a known error status
// instead of a payload. Errors arrive as a bare number, a one-element
// array holding a number, or an object with an "error" field.
func IsErrorResponse(response *Response) (*APIError, bool) {
	if len(response.Data) == 0 {
		return nil, false
	}
	var data interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		return nil, false
	}
	code := -1
	switch v := data.(type) {
	case float64:
		code = int(v)
	case []interface{}:
		if len(v) == 1 {
			if f, ok := v[0].(float64); ok {
				code = int(f)
			}
		}
	case map[string]interface{}:
		if msg, ok := v["error"].(string); ok && msg != "" {
			return &APIError{RPCID: response.ID, Message: msg}, true
		}
	}
	if code <= 1 {
		return nil, false
	}
	ec, ok := GetErrorCode(code)
	if !ok {
		// Unknown bare codes are status values, e.g. [16] for an empty listing.
		return nil, false
	}
	return &APIError{ErrorCode: ec, RPCID: response.ID, Message: ec.Message}, true
}
