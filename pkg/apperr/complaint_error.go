package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Validation errors
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeMissingField     = "MISSING_FIELD"

	// Resource errors
	CodeNotFound = "NOT_FOUND"

	// Dependency errors (classifiers, geolocation). These are logged and
	// absorbed at the adapter boundary; they never reach an HTTP response.
	CodeDependencyDegraded = "DEPENDENCY_DEGRADED"
	CodeTimeout            = "TIMEOUT"
	CodeAuthRejected       = "AUTH_REJECTED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUpstreamError      = "UPSTREAM_ERROR"
	CodeMalformedResponse  = "MALFORMED_RESPONSE"

	// Persistence errors - the only failure class that aborts a request
	CodeDatabaseError = "DATABASE_ERROR"

	// Reconciliation errors - logged only, fully swallowed
	CodeReconciliationFailed = "RECONCILIATION_FAILED"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Dependency errors
func DependencyDegraded(dependency string, err error) *AppError {
	return &AppError{
		Code:    CodeDependencyDegraded,
		Message: fmt.Sprintf("dependency degraded: %s", dependency),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"dependency": dependency},
		Err:     err,
	}
}

func Timeout(dependency string) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("request to %s timed out", dependency),
		Status:  http.StatusGatewayTimeout,
		Details: map[string]any{"dependency": dependency},
	}
}

func AuthRejected(dependency string) *AppError {
	return &AppError{
		Code:    CodeAuthRejected,
		Message: fmt.Sprintf("credentials rejected by %s", dependency),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"dependency": dependency},
	}
}

func RateLimited(dependency string) *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: fmt.Sprintf("rate limited by %s", dependency),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"dependency": dependency},
	}
}

func UpstreamError(dependency string, statusCode int) *AppError {
	return &AppError{
		Code:    CodeUpstreamError,
		Message: fmt.Sprintf("%s returned status %d", dependency, statusCode),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"dependency": dependency, "status_code": statusCode},
	}
}

func MalformedResponse(dependency string, err error) *AppError {
	return &AppError{
		Code:    CodeMalformedResponse,
		Message: fmt.Sprintf("unparseable response from %s", dependency),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"dependency": dependency},
		Err:     err,
	}
}

// Persistence errors
func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseError,
		Message: fmt.Sprintf("database error: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Reconciliation errors
func ReconciliationFailed(complaintID int64, err error) *AppError {
	return &AppError{
		Code:    CodeReconciliationFailed,
		Message: fmt.Sprintf("spam reconciliation failed for complaint %d", complaintID),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"complaint_id": complaintID},
		Err:     err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Common error instances
var (
	ErrNotFound   = NotFound("resource")
	ErrBadRequest = BadRequest("bad request")
	ErrInternal   = Internal("")
)

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
