// Package errors defines the error taxonomy shared by the search pipeline and
// its HTTP and Kafka surfaces.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInitialization    = errors.New("initialization failed")
	ErrMalformedDocument = errors.New("malformed document")
	ErrInvalidKeyword    = errors.New("invalid keyword")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// DocumentError reports a failure isolated to one document. It always
// matches ErrMalformedDocument under errors.Is.
type DocumentError struct {
	DocID string
	Err   error
}

func NewDocumentError(docID string, err error) *DocumentError {
	return &DocumentError{DocID: docID, Err: err}
}

func (e *DocumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q", ErrMalformedDocument, e.DocID)
	}
	return fmt.Sprintf("%s %q: %v", ErrMalformedDocument, e.DocID, e.Err)
}

func (e *DocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// AsDocumentError extracts a DocumentError from err's chain.
func AsDocumentError(err error) (*DocumentError, bool) {
	var docErr *DocumentError
	if errors.As(err, &docErr) {
		return docErr, true
	}
	return nil, false
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidKeyword), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrInitialization):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
