// Package client is a typed client for the Harvest Bridge API. Payloads are
// validated with the schema package before they are sent, so the server and
// the client reject the same input.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

const (
	defaultBaseURL = "http://localhost:8080"
	userAgent      = "harvest-bridge-client"

	farmsPath    = "/api/farmdataapi"
	postsPath    = "/api/posts.api"
	profilesPath = "/api/profileApi"
	usersPath    = "/api/users"
)

// TokenSource returns the bearer token for a request. An empty token sends
// the request anonymously.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the Harvest Bridge REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithToken sends a fixed bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = func(context.Context) (string, error) { return token, nil }
	}
}

// WithTokenSource fetches the bearer token per request, e.g. to refresh an
// expiring Firebase ID token.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.token = src
	}
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// validate runs the shared schema over a payload before it leaves the process.
func validate(payload any) error {
	return schema.Parse(payload)
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return c.httpClient.Do(req)
}

// call performs one request and decodes a 2xx body into target.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, target any) (http.Header, error) {
	resp, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.decodeResponse(ctx, resp, target); err != nil {
		return nil, err
	}
	return resp.Header, nil
}

func (c *Client) decodeResponse(ctx context.Context, resp *http.Response, target any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if target == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{
		Status:     resp.StatusCode,
		RetryAfter: strings.TrimSpace(resp.Header.Get("Retry-After")),
	}
	var body struct {
		Message string         `json:"error"`
		Details []schema.Issue `json:"details"`
		TraceID string         `json:"traceId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Message
		apiErr.Details = body.Details
		apiErr.TraceID = body.TraceID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		applog.LogWarn(ctx, "harvest bridge api failure",
			zap.Int("status", resp.StatusCode),
			zap.String("traceId", apiErr.TraceID),
			zap.String("url", resp.Request.URL.Redacted()),
		)
	}
	return apiErr
}

// parseLinkHeader extracts the "cursor" query value of the rel="next" link.
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}

	for raw := range strings.SplitSeq(header, ",") {
		part := strings.TrimSpace(raw)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}

		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}

		linkURL, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		if cursor := linkURL.Query().Get("cursor"); cursor != "" {
			return cursor
		}
	}
	return ""
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
