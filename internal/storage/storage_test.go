package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectID(t *testing.T) {
	re := regexp.MustCompile(`^\d{13}-[0-9a-f]{8}$`)
	a, b := NewObjectID(), NewObjectID()

	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
}

func TestMinioLocate(t *testing.T) {
	s := &MinioStorage{bucket: "media", publicBase: "http://localhost:9000/media"}

	loc := s.Locate("1760000000000-abcdef12")
	assert.Equal(t, Locator{
		Backend: BackendMinio,
		Library: "media",
		Key:     "1760000000000-abcdef12",
		URL:     "http://localhost:9000/media/1760000000000-abcdef12",
	}, loc)
}

func TestPublicReadPolicy(t *testing.T) {
	var policy map[string]any
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("media")), &policy))

	stmts := policy["Statement"].([]any)
	require.Len(t, stmts, 1)
	stmt := stmts[0].(map[string]any)
	assert.Equal(t, "s3:GetObject", stmt["Action"])
	assert.Equal(t, "arn:aws:s3:::media/*", stmt["Resource"])
}

// setupMockLibrary serves a tiny video-library API backed by a map.
func setupMockLibrary(t *testing.T, videos map[string][]byte, failUpload bool) *StreamStorage {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("AccessKey") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		const prefix = "/library/42/videos"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		guid := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

		switch {
		case r.Method == http.MethodPost && guid == "":
			var req createVideoRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			videos["guid-1"] = nil
			_ = json.NewEncoder(w).Encode(map[string]string{"guid": "guid-1", "title": req.Title})
		case r.Method == http.MethodPut:
			if failUpload {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, "encoder unavailable")
				return
			}
			if _, ok := videos[guid]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			videos[guid], _ = io.ReadAll(r.Body)
			_, _ = io.WriteString(w, `{"success":true}`)
		case r.Method == http.MethodGet:
			if _, ok := videos[guid]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, `{}`)
		case r.Method == http.MethodDelete:
			if _, ok := videos[guid]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(videos, guid)
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)

	return NewStreamStorage(server.URL, "42", "secret", "https://player.example/play/", 5*time.Second)
}

func TestStreamReserveUploadDelete(t *testing.T) {
	ctx := context.Background()
	videos := map[string][]byte{}
	s := setupMockLibrary(t, videos, false)

	loc, err := s.Reserve(ctx, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "guid-1", loc.Key)
	assert.Equal(t, "42", loc.Library)
	assert.Equal(t, BackendStream, loc.Backend)
	assert.Equal(t, "https://player.example/play/42/guid-1", loc.URL)

	payload := strings.Repeat("x", 1000)
	err = s.Upload(ctx, loc, Object{Name: "clip.mp4", Size: 1000, Body: strings.NewReader(payload)})
	require.NoError(t, err)
	assert.Len(t, videos["guid-1"], 1000)

	ok, err := s.Exists(ctx, loc)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, loc))
	require.NoError(t, s.Delete(ctx, loc), "second delete must be a no-op")

	ok, err = s.Exists(ctx, loc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamUploadFailureCarriesUpstreamText(t *testing.T) {
	ctx := context.Background()
	s := setupMockLibrary(t, map[string][]byte{}, true)

	loc, err := s.Reserve(ctx, "clip.mp4")
	require.NoError(t, err)

	err = s.Upload(ctx, loc, Object{Size: 3, Body: strings.NewReader("abc")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "encoder unavailable")
}

func TestStreamReserveUnauthorized(t *testing.T) {
	s := setupMockLibrary(t, map[string][]byte{}, false)
	s.apiKey = "wrong"

	_, err := s.Reserve(context.Background(), "clip.mp4")
	assert.ErrorContains(t, err, "status 401")
}

func TestCapabilities(t *testing.T) {
	var _ TwoPhaseUploader = (*StreamStorage)(nil)
	var _ DirectUploader = (*MinioStorage)(nil)
}
