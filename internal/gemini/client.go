package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gaspardpetit/promptrelay/internal/secret"
)

var (
	// ErrNoCandidates is returned when a successful reply carries no text at
	// candidates[0].content.parts[0].
	ErrNoCandidates = errors.New("gemini: response has no candidate text")
	// ErrMalformedResponse is returned when a successful reply is not valid JSON.
	ErrMalformedResponse = errors.New("gemini: malformed response")
)

// StatusError reports a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d", e.StatusCode)
}

// TransportError wraps failures that happen before a reply is received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "gemini: request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Client is a tiny HTTP client for the generateContent REST endpoint.
type Client struct {
	BaseURL    string
	Model      string
	APIKey     string
	httpClient *http.Client
}

// New returns a Client. A nil httpClient uses a zero http.Client, which
// enforces no timeout of its own.
func New(baseURL, model, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		APIKey:     apiKey,
		httpClient: httpClient,
	}
}

// Endpoint returns the generateContent URL including the key query parameter.
func (c *Client) Endpoint() string {
	q := url.Values{}
	q.Set("key", c.APIKey)
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?%s", c.BaseURL, url.PathEscape(c.Model), q.Encode())
}

// GenerateText sends prompt with the default generation settings and returns
// the first candidate's first text part.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.GenerateContent(ctx, NewTextRequest(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}
	part := resp.Candidates[0].Content.Parts[0]
	if part == nil {
		return "", ErrNoCandidates
	}
	return part.Text, nil
}

// GenerateContent posts req and decodes the reply.
func (c *Client) GenerateContent(ctx context.Context, req GenerateContentRequest) (*GenerateContentResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = secret.Redact(ue.URL, c.APIKey)
		}
		return nil, &TransportError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &out, nil
}
