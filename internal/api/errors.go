package api

import (
	"errors"
	"fmt"
)

// ErrNoStatus is reported by a Transport when the connection produced no
// response status line at all (the server closed it before replying).
var ErrNoStatus = errors.New("connection closed before response status")

// TransportErrorKind classifies a network-level failure.
type TransportErrorKind string

const (
	TransportTLS      TransportErrorKind = "tls"
	TransportSocket   TransportErrorKind = "socket"
	TransportTimeout  TransportErrorKind = "timeout"
	TransportDNS      TransportErrorKind = "dns"
	TransportCanceled TransportErrorKind = "canceled"
	TransportOther    TransportErrorKind = "other"
)

// Retryable reports whether failures of this kind are worth another attempt.
func (k TransportErrorKind) Retryable() bool {
	return k == TransportTLS || k == TransportSocket
}

// TransportError is a network failure that survived the retry loop.
type TransportError struct {
	Kind     TransportErrorKind
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned by HTTPTransport for HTTP error statuses.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// ProtocolError means the server answered, but not with a usable envelope.
type ProtocolError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Captcha is the challenge attached to a captcha-needed API error.
type Captcha struct {
	SID      string `json:"sid"`
	ImageURL string `json:"image_url"`
}

// APIError is an error reported inside the vk.com response envelope.
type APIError struct {
	Code          int
	Message       string
	RequestParams map[string]string
	captcha       *Captcha
}

func (e *APIError) Error() string {
	if e.Code == 0 {
		return "vk api error: " + e.Message
	}
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// Captcha returns the captcha challenge when the error carries one.
func (e *APIError) Captcha() (Captcha, bool) {
	if e.captcha == nil {
		return Captcha{}, false
	}
	return *e.captcha, true
}

// HasCaptcha reports whether the error carries a captcha challenge.
func (e *APIError) HasCaptcha() bool {
	return e.captcha != nil
}

// ValidationError rejects caller input before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid argument: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsTransportError checks if the error is a transport error.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsProtocolError checks if the error is a protocol error.
func IsProtocolError(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// IsAPIError checks if the error is an API error.
func IsAPIError(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// CaptchaFromError extracts a captcha challenge from err, if any.
func CaptchaFromError(err error) (Captcha, bool) {
	var e *APIError
	if !errors.As(err, &e) {
		return Captcha{}, false
	}
	return e.Captcha()
}

// IsCaptchaError checks if the error is a captcha-needed API error.
func IsCaptchaError(err error) bool {
	_, ok := CaptchaFromError(err)
	return ok
}
