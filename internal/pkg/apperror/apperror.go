package apperror

import "net/http"

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code    int               // HTTP Status Code (e.g., 400, 404)
	Message string            // User-facing error message
	Fields  map[string]string // Violated fields for validation errors, if any
	Err     error             // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidation creates a 400 AppError carrying every violated field.
// Callers collect all violations first so the client sees the full list at once.
func NewValidation(fields map[string]string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: "validation failed",
		Fields:  fields,
	}
}
