// Package apperr maps component failures onto categorized service errors.
//
// Components return these errors as discriminated outcomes; the transport
// translates them into status codes via the Code field.
package apperr

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextValidation       = "VALIDATION_ERROR"
	TextTooLarge         = "PAYLOAD_TOO_LARGE"
	TextInvalidSignature = "INVALID_SIGNATURE"
	TextNotFound         = "NOT_FOUND"
	TextStorage          = "STORAGE_ERROR"
	TextConfiguration    = "CONFIGURATION_ERROR"
	TextOverloaded       = "OVERLOADED"
	TextRateLimited      = "RATE_LIMITED"
	TextInternal         = "INTERNAL_ERROR"
)

func newError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(source error, message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return newError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// Validation reports a malformed request.
func Validation(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryBadInput, http.StatusBadRequest, TextValidation, metadata)
}

// TooLarge reports a request body over the configured limit.
func TooLarge(limit int64) error {
	return newError("request body too large", goerrors.CategoryBadInput, http.StatusRequestEntityTooLarge, TextTooLarge, map[string]any{"limit_bytes": limit})
}

// InvalidSignature reports an unsigned or misauthenticated request.
func InvalidSignature(message string) error {
	return newError(message, goerrors.CategoryAuth, http.StatusUnauthorized, TextInvalidSignature, nil)
}

// NotFound reports an unknown record id. It is a normal outcome, not a failure.
func NotFound(message, id string) error {
	return newError(message, goerrors.CategoryNotFound, http.StatusNotFound, TextNotFound, map[string]any{"id": id})
}

// Storage wraps a durable-store failure.
func Storage(source error, op string) error {
	return wrapError(source, "storage: "+op+" failed", goerrors.CategoryInternal, http.StatusInternalServerError, TextStorage, map[string]any{"op": op})
}

// Configuration reports a missing or invalid required setting.
func Configuration(message string) error {
	return newError(message, goerrors.CategoryInternal, http.StatusInternalServerError, TextConfiguration, nil)
}

// Overloaded reports that the service cannot accept more work right now.
func Overloaded(message string) error {
	return newError(message, goerrors.CategoryRateLimit, http.StatusTooManyRequests, TextOverloaded, nil)
}

// RateLimited reports a caller over its request budget.
func RateLimited(key string) error {
	return newError("too many requests from this address", goerrors.CategoryRateLimit, http.StatusTooManyRequests, TextRateLimited, map[string]any{"key": key})
}

// Internal wraps an unexpected failure.
func Internal(source error, message string) error {
	return wrapError(source, message, goerrors.CategoryInternal, http.StatusInternalServerError, TextInternal, nil)
}

// From returns the categorized error in err's chain, if any.
func From(err error) (*goerrors.Error, bool) {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) {
		return nil, false
	}
	return rich, true
}

func hasTextCode(err error, textCode string) bool {
	rich, ok := From(err)
	return ok && rich.TextCode == textCode
}

func IsValidation(err error) bool    { return hasTextCode(err, TextValidation) }
func IsNotFound(err error) bool      { return hasTextCode(err, TextNotFound) }
func IsStorage(err error) bool       { return hasTextCode(err, TextStorage) }
func IsConfiguration(err error) bool { return hasTextCode(err, TextConfiguration) }
func IsOverloaded(err error) bool    { return hasTextCode(err, TextOverloaded) }
func IsInvalidSignature(err error) bool {
	return hasTextCode(err, TextInvalidSignature)
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	if rich, ok := From(err); ok && rich.Code != 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}
