package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ndthang/quizdeck/internal/dto"
)

const maxBodySize = 1 << 20

// Client is a typed client for the quiz REST API. Every request carries the
// bearer token from the injected CredentialStore and is transparently retried
// once after a token refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a quiz API client. baseURL points at the API root, e.g.
// "http://localhost:8000/api".
func NewClient(baseURL string, creds CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = newAuthTransport(c.baseURL, creds, c.httpClient.Transport)
	return c
}

// APIError is a non-2xx response from the quiz API. Detail carries the
// server-provided message when one was present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("quiz API returned HTTP %d", e.StatusCode)
}

// LoadAttempt fetches the attempt state and its quiz definition.
func (c *Client) LoadAttempt(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error) {
	var out dto.AttemptDetailDTO
	path := fmt.Sprintf("/quizzes/student-quizzes/%d/", attemptID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAttempt posts the filtered answer set for the attempt.
func (c *Client) SubmitAttempt(ctx context.Context, attemptID uint, req dto.QuizSubmitDTO) error {
	path := fmt.Sprintf("/quizzes/student-quizzes/%d/submit/", attemptID)
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

// Login exchanges credentials for a token pair. Storing the pair is the
// caller's business.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.TokenPairDTO, error) {
	var out dto.TokenPairDTO
	req := dto.LoginRequestDTO{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/users/token/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail dto.ErrorDTO
		if json.Unmarshal(data, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
