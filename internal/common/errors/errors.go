// Package errors provides the error taxonomy shared by the menu pipeline and the API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUpstreamUnavailable  ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeCampusNotFound       ErrorCode = "CAMPUS_NOT_FOUND"
	ErrCodeDateNotFound         ErrorCode = "DATE_NOT_FOUND"
	ErrCodeNutritionUnavailable ErrorCode = "NUTRITION_UNAVAILABLE"

	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMMalformed   ErrorCode = "LLM_MALFORMED"

	ErrCodeInvalidPreferences ErrorCode = "INVALID_PREFERENCES"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
}

// Is matches another *StandardError by code, so errors.Is works against the
// package-level sentinels below.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrUpstreamUnavailable = &StandardError{Code: ErrCodeUpstreamUnavailable}
	ErrCampusNotFound      = &StandardError{Code: ErrCodeCampusNotFound}
	ErrDateNotFound        = &StandardError{Code: ErrCodeDateNotFound}
	ErrLLMUnavailable      = &StandardError{Code: ErrCodeLLMUnavailable}
	ErrLLMMalformed        = &StandardError{Code: ErrCodeLLMMalformed}
	ErrInvalidPreferences  = &StandardError{Code: ErrCodeInvalidPreferences}
)

// NewUpstreamUnavailableError reports a failed fetch against the menu site.
// stage names the pipeline step: "form", "meal", "nutrition".
func NewUpstreamUnavailableError(stage string, err error) *StandardError {
	details := fmt.Sprintf("stage: %s", stage)
	if err != nil {
		details = fmt.Sprintf("stage: %s, error: %s", stage, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   "Menu website unavailable",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

// NewCampusNotFoundError is returned when no campus option matches the profile terms.
func NewCampusNotFoundError(campusKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCampusNotFound,
		Message:   "Campus not found in menu form",
		Details:   fmt.Sprintf("campus: %s", campusKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDateNotFoundError is returned when the form offers no dates at all.
func NewDateNotFoundError(today string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDateNotFound,
		Message:   "No menu dates available",
		Details:   fmt.Sprintf("today: %s", today),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNutritionUnavailableError describes a per-item extraction failure. It is
// logged, never surfaced to callers.
func NewNutritionUnavailableError(url string, err error) *StandardError {
	details := fmt.Sprintf("url: %s", url)
	if err != nil {
		details = fmt.Sprintf("url: %s, error: %s", url, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeNutritionUnavailable,
		Message:   "Nutrition facts unavailable",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMUnavailableError covers HTTP, timeout and overload failures of the LLM scorer.
func NewLLMUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMUnavailable,
		Message:   "LLM scorer unavailable",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMMalformedError covers unparseable or schema-invalid LLM output.
func NewLLMMalformedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMMalformed,
		Message:   "LLM scorer returned malformed output",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPreferencesError is the caller error raised before any network activity.
func NewInvalidPreferencesError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPreferences,
		Message:   "Invalid dietary preferences",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError reports a malformed request body or query.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid input data",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError is returned for a wrong admin secret.
func NewUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Invalid password",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError is returned by the request limiter.
func NewRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything unexpected. Details stay server-side.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "An internal server error occurred.",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HTTPStatus maps an error code onto the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidPreferences, ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamUnavailable, ErrCodeLLMUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeLLMMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeUpstreamUnavailable, ErrCodeLLMUnavailable, ErrCodeRateLimited:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUpstreamUnavailable, ErrCodeCampusNotFound, ErrCodeDateNotFound, ErrCodeNutritionUnavailable:
		return "SCRAPE"
	case ErrCodeLLMUnavailable, ErrCodeLLMMalformed:
		return "LLM"
	case ErrCodeInvalidPreferences, ErrCodeInvalidRequest, ErrCodeUnauthorized, ErrCodeRateLimited:
		return "CLIENT"
	default:
		return "SYSTEM"
	}
}
