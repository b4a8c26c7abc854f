// Package client is the HTTP client for the one-time secret API.
//
// The client only ever sends envelope ciphertext and secret ids. Link keys stay with
// the caller.
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

	"github.com/hashicorp/go-cleanhttp"

	"github.com/allisson/ots/internal/httputil"
	"github.com/allisson/ots/internal/secrets/http/dto"
)

const (
	apiBasePath    = "/api/v1/ots"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// ErrSecretNotFound is returned when the server reports the secret as missing,
// expired or already consumed.
var ErrSecretNotFound = errors.New("secret not found, expired or already consumed")

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (%d %s)", e.StatusCode, e.Code)
}

// Is matches ErrSecretNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrSecretNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to one server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for baseURL, e.g. https://ots.example.com.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = defaultTimeout

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server url.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateSecret stores an envelope and returns the server-assigned id.
func (c *Client) CreateSecret(ctx context.Context, req *dto.CreateSecretRequest) (*dto.CreateSecretResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp dto.CreateSecretResponse
	if err := c.do(ctx, http.MethodPost, apiBasePath+"/", bytes.NewReader(body), http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RedeemSecret spends one read of the secret and returns its envelope.
func (c *Client) RedeemSecret(ctx context.Context, id string) (*dto.RedeemSecretResponse, error) {
	if id == "" {
		return nil, errors.New("secret id cannot be empty")
	}

	var resp dto.RedeemSecretResponse
	if err := c.do(ctx, http.MethodGet, apiBasePath+"/"+url.PathEscape(id), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSecret removes the secret before it is read.
func (c *Client) DeleteSecret(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("secret id cannot be empty")
	}
	return c.do(ctx, http.MethodDelete, apiBasePath+"/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach server at %s: %w", c.baseURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		return parseAPIError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Code: http.StatusText(statusCode)}

	var errResp httputil.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Error
		apiErr.Message = errResp.Message
	}
	return apiErr
}
