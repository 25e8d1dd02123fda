package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "No file uploaded") }, http.StatusBadRequest, `{"success":false,"error":"No file uploaded"}`},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "nope") }, http.StatusUnauthorized, `{"success":false,"error":"nope"}`},
		{"too large", func(w http.ResponseWriter) { TooLarge(w, "big") }, http.StatusRequestEntityTooLarge, `{"success":false,"error":"big"}`},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "store object: 503") }, http.StatusInternalServerError, `{"success":false,"error":"store object: 503"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()
	Text(rec, http.StatusNotFound, "404 Not Found")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "404 Not Found", rec.Body.String())
}
