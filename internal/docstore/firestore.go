package docstore

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

// FirestoreStore implements Store over the Firestore REST API.
type FirestoreStore struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	apiKey     string
	token      string
}

// NewFirestoreStore creates a Firestore REST client. apiKey and token are both
// optional; when set they are sent as the "key" query parameter and a bearer token.
func NewFirestoreStore(baseURL, projectID, apiKey, token string, timeout time.Duration) *FirestoreStore {
	return &FirestoreStore{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		apiKey:     apiKey,
		token:      token,
	}
}

type firestoreDocument struct {
	Name   string               `json:"name,omitempty"`
	Fields map[string]wireValue `json:"fields"`
}

type firestoreError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Get fetches the document at path.
func (s *FirestoreStore) Get(ctx context.Context, path string) (Document, error) {
	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firestore get %s: %w", path, upstreamError(resp))
	}

	var doc firestoreDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("firestore get %s: decode: %w", path, err)
	}
	return decodeFields(doc.Fields), nil
}

// Patch creates or replaces the document at path.
func (s *FirestoreStore) Patch(ctx context.Context, path string, doc Document) error {
	fields, err := encodeFields(doc)
	if err != nil {
		return fmt.Errorf("firestore patch %s: %w", path, err)
	}
	body, err := json.Marshal(firestoreDocument{Fields: fields})
	if err != nil {
		return fmt.Errorf("firestore patch %s: encode: %w", path, err)
	}

	resp, err := s.do(ctx, http.MethodPatch, path, body)
	if err != nil {
		return fmt.Errorf("firestore patch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firestore patch %s: %w", path, upstreamError(resp))
	}
	return nil
}

// Delete removes the document at path; a missing document is not an error.
func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	resp, err := s.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("firestore delete %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("firestore delete %s: %w", path, upstreamError(resp))
}

func (s *FirestoreStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/%s/%s",
		s.baseURL, url.PathEscape(s.projectID), escapeSegments(collection), url.PathEscape(id))
	if s.apiKey != "" {
		u += "?key=" + url.QueryEscape(s.apiKey)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	return s.httpClient.Do(req)
}

func escapeSegments(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// upstreamError turns a non-2xx response into an error carrying the service's message.
func upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var fe firestoreError
	if err := json.Unmarshal(raw, &fe); err == nil && fe.Error.Message != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, fe.Error.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
