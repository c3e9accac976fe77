package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error. It doubles as the machine readable code in
// error responses.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindConflict   Kind = "CONFLICT"
	KindAuth       Kind = "UNAUTHORIZED"
	KindNotFound   Kind = "NOT_FOUND"
)

// Error is a domain error carrying a Kind and a client-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same kind. A target with an
// empty message matches every error of its kind, so errors.Is(err, ErrConflict)
// holds for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Validation builds a ValidationError.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// Conflict builds a ConflictError.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// Auth builds an AuthError.
func Auth(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }

// NotFound builds a NotFoundError.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

var (
	// Kind-level sentinels for errors.Is.
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrNotFound   = &Error{Kind: KindNotFound}

	// ErrInvalidCredentials is returned for an unknown email and a wrong password alike.
	ErrInvalidCredentials = Auth("invalid credentials")
	// ErrInvalidToken is returned when a bearer token is missing, malformed, expired or revoked.
	ErrInvalidToken = Auth("invalid or missing token")
	// ErrEmailTaken is returned when registering or switching to an email already in use.
	ErrEmailTaken = Conflict("email already registered")
	// ErrCategoryInUse is returned when deleting a category that still has products.
	ErrCategoryInUse = Conflict("category has associated products")
	// ErrUserNotFound is returned when the caller's account no longer exists.
	ErrUserNotFound = NotFound("user not found")
	// ErrCategoryNotFound is returned when a category is not found.
	ErrCategoryNotFound = NotFound("category not found")
	// ErrProductNotFound is returned when a product is not found.
	ErrProductNotFound = NotFound("product not found")
	// ErrOrderNotFound is returned when an order is absent or owned by someone else.
	ErrOrderNotFound = NotFound("order not found")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Conflicts answer 400 to
// keep the public contract; anything unclassified becomes an opaque 500.
func MapErrorToHTTP(err error) *HTTPError {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}

	switch domainErr.Kind {
	case KindValidation, KindConflict:
		return NewHTTPError(http.StatusBadRequest, domainErr.Message, string(domainErr.Kind))
	case KindAuth:
		return NewHTTPError(http.StatusUnauthorized, domainErr.Message, string(domainErr.Kind))
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, domainErr.Message, string(domainErr.Kind))
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
