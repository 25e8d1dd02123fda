package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
	"github.com/ndunkgo99/Viyey-worker/internal/file"
	"github.com/ndunkgo99/Viyey-worker/internal/stats"
	"github.com/ndunkgo99/Viyey-worker/internal/storage"
)

// discardStorage accepts every write and forgets it.
type discardStorage struct{}

func (discardStorage) Put(context.Context, storage.Object) (storage.Locator, error) {
	return discardStorage{}.Locate("obj-1"), nil
}

func (discardStorage) Delete(context.Context, storage.Locator) error { return nil }

func (discardStorage) Exists(context.Context, storage.Locator) (bool, error) { return false, nil }

func (discardStorage) Locate(key string) storage.Locator {
	return storage.Locator{Backend: "discard", Key: key, URL: "http://objects.test/" + key}
}

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	counter := stats.NewCounter(docstore.NewMemoryStore(), "stats/summary")
	svc := file.NewService(
		discardStorage{}, docstore.NewMemoryStore(), nil, counter, "files",
		file.Timeouts{Remote: time.Second, Transfer: time.Second},
		log.NewNopLogger(),
	)
	return NewRouter(
		file.NewHandler(svc, 1<<20, log.NewNopLogger()),
		stats.NewHandler(counter, false, log.NewNopLogger()),
		Options{WorkerName: "viyey-test", JWTSecret: secret, Logger: log.NewNopLogger()},
	)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(t, ""), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","worker":"viyey-test"}`, rec.Body.String())
}

func TestRootUsage(t *testing.T) {
	rec := serve(newTestRouter(t, ""), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, usage, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(t, ""), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 Not Found", rec.Body.String())
}

func TestSummaryStartsEmpty(t *testing.T) {
	rec := serve(newTestRouter(t, ""), httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalFiles":0,"totalSize":0,"lastUpdated":"N/A"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	router := newTestRouter(t, "")

	for _, path := range []string{"/upload", "/health", "/anything"} {
		t.Run("browser "+path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, nil)
			req.Header.Set("Origin", "https://dashboard.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")

			rec := serve(router, req)
			assert.Less(t, rec.Code, 300)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, rec.Body.String())
		})

		t.Run("bare "+path, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodOptions, path, nil))
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
			assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
			assert.Empty(t, rec.Body.String())
		})
	}
}

func TestMutatingRoutesRequireTokenWhenConfigured(t *testing.T) {
	router := newTestRouter(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(`{"fileId":"obj-1"}`))
	rec := serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(`{"fileId":"obj-1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"File obj-1 deleted"}`, rec.Body.String())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, "")
	serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "viyey_http_requests_total")
}
