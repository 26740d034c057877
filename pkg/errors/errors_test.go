package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := Newf(ErrInvalidKeyword, http.StatusBadRequest, "keyword %d is empty", 2)
	assert.True(t, errors.Is(err, ErrInvalidKeyword))
	assert.Equal(t, "invalid keyword: keyword 2 is empty", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatusCode(err))
}

func TestDocumentError(t *testing.T) {
	err := fmt.Errorf("scanning: %w", NewDocumentError("ug7v899j", io.ErrUnexpectedEOF))

	assert.True(t, errors.Is(err, ErrMalformedDocument))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	docErr, ok := AsDocumentError(err)
	assert.True(t, ok)
	assert.Equal(t, "ug7v899j", docErr.DocID)
	assert.Contains(t, err.Error(), `"ug7v899j"`)

	_, ok = AsDocumentError(io.EOF)
	assert.False(t, ok)
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", ErrInvalidKeyword), http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrTimeout, http.StatusGatewayTimeout},
		{fmt.Errorf("corpus scan aborted: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{ErrInitialization, http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}
