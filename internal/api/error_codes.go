package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// vk.com API error codes the client reacts to.
const (
	VKErrUnknown            = 1
	VKErrAppDisabled        = 2
	VKErrUnknownMethod      = 3
	VKErrAuthFailed         = 5
	VKErrTooManyRequests    = 6
	VKErrPermissionDenied   = 7
	VKErrFlood              = 9
	VKErrInternal           = 10
	VKErrCaptchaNeeded      = 14
	VKErrAccessDenied       = 15
	VKErrValidationRequired = 17
	VKErrUserDeleted        = 18
	VKErrInvalidParam       = 100
	VKErrInvalidUserID      = 113
	VKErrInvalidGroupID     = 125
	VKErrGroupAccessDenied  = 203
)

// ErrorCode represents machine-readable error codes for agent error handling.
type ErrorCode string

const (
	// ErrUnauthorized indicates the access token is missing, expired or revoked.
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the token lacks the required permission.
	ErrForbidden ErrorCode = "forbidden"
	// ErrRateLimited indicates too many requests per second or flood control.
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrCaptcha indicates the server demands a captcha answer.
	ErrCaptcha ErrorCode = "captcha"
	// ErrValidationRequired indicates the user must confirm the account in a browser.
	ErrValidationRequired ErrorCode = "validation_required"
	// ErrInvalidParam indicates an invalid request parameter.
	ErrInvalidParam ErrorCode = "invalid_param"
	// ErrValidation indicates local argument validation failed.
	ErrValidation ErrorCode = "validation_failed"
	// ErrServerError indicates an internal server error.
	ErrServerError ErrorCode = "server_error"
	// ErrProtocol indicates the response could not be understood.
	ErrProtocol ErrorCode = "protocol_error"
	// ErrNetwork indicates a transport failure.
	ErrNetwork ErrorCode = "network_error"
	// ErrTimeout indicates the request timed out.
	ErrTimeout ErrorCode = "timeout"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrNetwork, ErrTimeout:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable suggestion for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'vk auth login' with a fresh access token"
	case ErrForbidden:
		return "Request the missing scope when obtaining the token (see 'vk auth url')"
	case ErrRateLimited:
		return "Wait a moment and retry, or lower --rps"
	case ErrCaptcha:
		return "Re-run interactively to answer the captcha"
	case ErrValidationRequired:
		return "Open the validation URL in a browser and confirm the account"
	case ErrInvalidParam:
		return "Check the request parameters"
	case ErrValidation:
		return "Check the input values"
	case ErrServerError:
		return "The server encountered an error; try again later"
	case ErrProtocol:
		return "The server returned an unexpected response; retry with --debug"
	case ErrNetwork:
		return "Check network connectivity and retry"
	case ErrTimeout:
		return "The request timed out; raise --timeout or retry"
	default:
		return ""
	}
}

// ErrorCodeFromVK maps a vk.com error_code to an ErrorCode.
func ErrorCodeFromVK(code int) ErrorCode {
	switch code {
	case VKErrAuthFailed:
		return ErrUnauthorized
	case VKErrTooManyRequests, VKErrFlood:
		return ErrRateLimited
	case VKErrPermissionDenied, VKErrAccessDenied, VKErrGroupAccessDenied, VKErrAppDisabled:
		return ErrForbidden
	case VKErrCaptchaNeeded:
		return ErrCaptcha
	case VKErrValidationRequired:
		return ErrValidationRequired
	case VKErrInvalidParam, VKErrInvalidUserID, VKErrInvalidGroupID, VKErrUnknownMethod:
		return ErrInvalidParam
	case VKErrInternal, VKErrUnknown:
		return ErrServerError
	default:
		return ErrUnknown
	}
}

// StructuredError provides machine-readable error information for agents.
type StructuredError struct {
	Code          ErrorCode      `json:"code"`
	Message       string         `json:"message"`
	Retryable     bool           `json:"retryable"`
	Suggestion    string         `json:"suggestion,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	AllowedValues []string       `json:"allowed_values,omitempty"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements custom JSON marshaling.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type Alias StructuredError
	return json.Marshal((*Alias)(e))
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// NewAllowedValuesError creates a StructuredError for a value outside a fixed
// set, listing the allowed values so agents can self-correct.
func NewAllowedValuesError(field string, got string, allowed []string) *StructuredError {
	return &StructuredError{
		Code:          ErrValidation,
		Message:       fmt.Sprintf("invalid %s %q: must be one of %s", field, got, strings.Join(allowed, ", ")),
		Retryable:     false,
		Suggestion:    fmt.Sprintf("Use one of: %s", strings.Join(allowed, ", ")),
		AllowedValues: allowed,
		Context:       map[string]any{"field": field, "got": got},
	}
}

// StructuredErrorFromAPIError converts an APIError to a StructuredError.
func StructuredErrorFromAPIError(apiErr *APIError) *StructuredError {
	code := ErrorCodeFromVK(apiErr.Code)
	ctx := map[string]any{
		"vk_error_code": apiErr.Code,
	}
	if c, ok := apiErr.Captcha(); ok {
		ctx["captcha_sid"] = c.SID
		ctx["captcha_img"] = c.ImageURL
	}
	if method, ok := apiErr.RequestParams["method"]; ok {
		ctx["method"] = method
	}
	return &StructuredError{
		Code:       code,
		Message:    apiErr.Message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
		Context:    ctx,
	}
}

// StructuredErrorFromError attempts to convert any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return StructuredErrorFromAPIError(apiErr)
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		se := NewStructuredError(ErrValidation, valErr.Error())
		if valErr.Field != "" {
			se.Context = map[string]any{"field": valErr.Field}
		}
		return se
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		se := NewStructuredError(ErrProtocol, protoErr.Error())
		if protoErr.StatusCode != 0 {
			se.Context = map[string]any{"status_code": protoErr.StatusCode}
		}
		return se
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		code := ErrNetwork
		if transportErr.Kind == TransportTimeout {
			code = ErrTimeout
		}
		se := NewStructuredError(code, transportErr.Error())
		se.Context = map[string]any{
			"kind":     string(transportErr.Kind),
			"attempts": transportErr.Attempts,
		}
		return se
	}

	// Generic error - classify as unknown
	return &StructuredError{
		Code:       ErrUnknown,
		Message:    err.Error(),
		Retryable:  false,
		Suggestion: "",
	}
}
