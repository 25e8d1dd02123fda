package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BackendStream names objects written by StreamStorage.
const BackendStream = "stream"

// StreamStorage implements TwoPhaseUploader against a video-library HTTP API:
// a video entry is created first and its bytes are uploaded against the returned guid.
type StreamStorage struct {
	httpClient *http.Client
	baseURL    string
	libraryID  string
	apiKey     string
	playerBase string
}

// NewStreamStorage creates a video-library client.
func NewStreamStorage(baseURL, libraryID, apiKey, playerBase string, timeout time.Duration) *StreamStorage {
	return &StreamStorage{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		libraryID:  libraryID,
		apiKey:     apiKey,
		playerBase: strings.TrimRight(playerBase, "/"),
	}
}

type createVideoRequest struct {
	Title string `json:"title"`
}

type createVideoResponse struct {
	GUID string `json:"guid"`
}

// Reserve creates an empty video entry titled name.
func (s *StreamStorage) Reserve(ctx context.Context, name string) (Locator, error) {
	body, err := json.Marshal(createVideoRequest{Title: name})
	if err != nil {
		return Locator{}, fmt.Errorf("encode create video: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.videosURL(""), bytes.NewReader(body))
	if err != nil {
		return Locator{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Locator{}, fmt.Errorf("create video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Locator{}, fmt.Errorf("create video: %w", upstreamError(resp))
	}

	var out createVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Locator{}, fmt.Errorf("decode create video: %w", err)
	}
	if out.GUID == "" {
		return Locator{}, fmt.Errorf("create video: response carried no guid")
	}
	return s.Locate(out.GUID), nil
}

// Upload sends the object bytes to a reserved video entry.
func (s *StreamStorage) Upload(ctx context.Context, loc Locator, obj Object) error {
	req, err := s.newRequest(ctx, http.MethodPut, s.videosURL(loc.Key), obj.Body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if obj.Size >= 0 {
		req.ContentLength = obj.Size
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload video %s: %w", loc.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload video %s: %w", loc.Key, upstreamError(resp))
	}
	return nil
}

// Delete removes the video entry; a missing entry is not an error.
func (s *StreamStorage) Delete(ctx context.Context, loc Locator) error {
	req, err := s.newRequest(ctx, http.MethodDelete, s.videosURL(loc.Key), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", loc.Key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return fmt.Errorf("delete video %s: %w", loc.Key, upstreamError(resp))
}

// Exists fetches the video entry.
func (s *StreamStorage) Exists(ctx context.Context, loc Locator) (bool, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.videosURL(loc.Key), http.NoBody)
	if err != nil {
		return false, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("get video %s: %w", loc.Key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, fmt.Errorf("get video %s: %w", loc.Key, upstreamError(resp))
}

// Locate returns the locator of a video guid in the configured library.
func (s *StreamStorage) Locate(key string) Locator {
	return Locator{
		Backend: BackendStream,
		Library: s.libraryID,
		Key:     key,
		URL:     fmt.Sprintf("%s/%s/%s", s.playerBase, s.libraryID, key),
	}
}

func (s *StreamStorage) videosURL(guid string) string {
	u := fmt.Sprintf("%s/library/%s/videos", s.baseURL, url.PathEscape(s.libraryID))
	if guid != "" {
		u += "/" + url.PathEscape(guid)
	}
	return u
}

func (s *StreamStorage) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("AccessKey", s.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
