// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidRequest
	KindInsufficientStock
	KindConflict
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}

// Error is the typed domain error services return. Handlers translate it to an
// HTTP status via StatusOf and render the envelope with Shortages attached
// when present.
type Error struct {
	Kind      Kind
	Message   string
	Shortages []string
}

func (e *Error) Error() string {
	if len(e.Shortages) > 0 {
		return e.Message + ": " + strings.Join(e.Shortages, "; ")
	}
	return e.Message
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock carries one human-readable description per offending line
// so the caller can correct every shortage in a single retry.
func InsufficientStock(shortages []string) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   "insufficient stock",
		Shortages: shortages,
	}
}

// Conflict marks a race lost inside the transaction (guarded stock decrement
// or ticket assignment). The whole unit has been rolled back.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// StatusOf maps a domain error to its HTTP status code. Unknown errors map to
// 500 so repository failures never leak implementation details with a 4xx.
func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidRequest, KindInsufficientStock:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Payload renders the JSON body for a domain error.
func Payload(err error) interface{} {
	var e *Error
	if errors.As(err, &e) && len(e.Shortages) > 0 {
		return &StockError{Detail: e.Message, Shortages: e.Shortages}
	}
	return New(err.Error())
}

// StockError is the envelope for InsufficientStock responses.
type StockError struct {
	Detail    string   `json:"detail"`
	Shortages []string `json:"shortages"`
}
