// Package client is a Go client for the gateway's HTTP API.
package client

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
	"time"
)

// ErrNoSession is returned when a call needing a session gets none, or one
// that has expired.
var ErrNoSession = errors.New("client: no valid session")

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Status  int
	Message string
	// Reason is "monthly" or "daily" on quota rejections.
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gateway: %d %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("gateway: %d %s", e.Status, e.Message)
}

func (e *APIError) IsQuotaExceeded() bool {
	return e.Status == http.StatusTooManyRequests && e.Reason != ""
}

// IsQuotaExceeded reports whether err is a quota rejection from the gateway.
func IsQuotaExceeded(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsQuotaExceeded()
}

type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sessionResponse struct {
	SessionToken string `json:"sessionToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Exchange trades an identity assertion for a session.
func (c *Client) Exchange(ctx context.Context, assertion string, id Identity) (*Session, error) {
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchange-token", assertion, id, &out); err != nil {
		return nil, err
	}
	return &Session{
		Token:     out.SessionToken,
		ExpiresAt: c.now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

type generateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Generate runs one prompt against the model and returns its text.
func (c *Client) Generate(ctx context.Context, s *Session, prompt string, opts ...GenerateOptions) (string, error) {
	req := generateRequest{Prompt: prompt}
	if len(opts) > 0 {
		req.MaxTokens = opts[0].MaxTokens
		req.Temperature = opts[0].Temperature
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := c.authed(ctx, http.MethodPost, "/v1/generate", s, req, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (c *Client) Quota(ctx context.Context, s *Session) (*QuotaStatus, error) {
	var out QuotaStatus
	if err := c.authed(ctx, http.MethodGet, "/api/user-quota", s, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard fetches the admin snapshot. search and sort may be empty.
func (c *Client) Dashboard(ctx context.Context, s *Session, search, sort string) (*Dashboard, error) {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/api/dashboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out Dashboard
	if err := c.authed(ctx, http.MethodGet, path, s, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authed(ctx context.Context, method, path string, s *Session, in, out any) error {
	if !s.Valid(c.now()) {
		return ErrNoSession
	}
	return c.do(ctx, method, path, s.Token, in, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Reason = body.Reason
	}
	return apiErr
}
