package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		header string
		value  string
		want   int
	}{
		{"unguarded", "", "", "", http.StatusNoContent},
		{"missing", "s3cret", "", "", http.StatusUnauthorized},
		{"wrong bearer", "s3cret", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "s3cret", "Authorization", "Bearer s3cret", http.StatusNoContent},
		{"api key header", "s3cret", "X-API-Key", "s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			AdminToken(tt.token)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
