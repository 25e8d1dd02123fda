// Package shortener registers monetized redirect links with a third-party
// URL-shortening service.
package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled is returned when no shortening service is configured.
var ErrDisabled = errors.New("link shortener disabled")

// Shortener turns a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, target string) (string, error)
}

// Client is an HTTP Shortener authenticated with a bearer token.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewClient creates a shortener client posting to endpoint.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		token:      token,
	}
}

type shortenRequest struct {
	URL string `json:"url"`
}

// shortenResponse accepts the field names used by common shortening APIs.
type shortenResponse struct {
	ShortenedURL string `json:"shortenedUrl"`
	ShortURL     string `json:"shortUrl"`
	ShortURLAlt  string `json:"short_url"`
	URL          string `json:"url"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

func (r shortenResponse) link() string {
	for _, s := range []string{r.ShortenedURL, r.ShortURL, r.ShortURLAlt, r.URL} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Shorten submits target and returns the shortened URL.
func (c *Client) Shorten(ctx context.Context, target string) (string, error) {
	body, err := json.Marshal(shortenRequest{URL: target})
	if err != nil {
		return "", fmt.Errorf("encode shorten request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build shorten request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shorten: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read shorten response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("shorten: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out shortenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode shorten response: %w", err)
	}
	if strings.EqualFold(out.Status, "error") {
		return "", fmt.Errorf("shorten: %s", out.Message)
	}

	link := out.link()
	if link == "" || link == target {
		return "", fmt.Errorf("shorten: response carried no short url")
	}
	return link, nil
}

// Disabled is the Shortener used when no service is configured.
type Disabled struct{}

// Shorten always returns ErrDisabled.
func (Disabled) Shorten(context.Context, string) (string, error) {
	return "", ErrDisabled
}
