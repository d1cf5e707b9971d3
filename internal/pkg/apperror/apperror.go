package apperror

import "net/http"

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindSignature     Kind = "signature"
	KindTransient     Kind = "transient"
	KindInternal      Kind = "internal"
)

// StatusCode maps a Kind to the HTTP status returned to the caller.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation, KindState, KindSignature:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Kind    Kind
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Message string         // User-facing error message
	Details map[string]any // Extra fields surfaced to the client
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// With returns a copy of e carrying an extra detail field.
// The copy still matches e with errors.Is.
func (e *AppError) With(key string, value any) *AppError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value

	return &AppError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Err:     e,
	}
}

// New creates a new AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    kind.StatusCode(),
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    kind.StatusCode(),
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *AppError    { return New(KindValidation, message) }
func NotFound(message string) *AppError      { return New(KindNotFound, message) }
func Conflict(message string) *AppError      { return New(KindConflict, message) }
func Authorization(message string) *AppError { return New(KindAuthorization, message) }
func State(message string) *AppError         { return New(KindState, message) }
func Signature(message string) *AppError     { return New(KindSignature, message) }

// Transient marks err as safe to retry.
func Transient(err error) *AppError {
	return Wrap(err, KindTransient, "service temporarily unavailable")
}
