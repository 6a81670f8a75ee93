// Package graph is a small client for the social network's versioned Graph API.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 8 << 20

// Client issues Graph API GETs with a bearer token per call.
type Client struct {
	baseURL    *url.URL
	version    string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Transport becomes the
// base of the bearer token transport and its Timeout applies unless
// WithTimeout is given. The client itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout bounds every request, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL, version string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[graph NewClient] invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[graph NewClient] base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    u,
		version:    strings.Trim(version, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL resolves a request against the versioned base URL.
func (c *Client) URL(req Request) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + c.version + "/" + strings.TrimPrefix(req.Path, "/")
	u.RawQuery = req.Params.Encode()
	return u.String()
}

// Get performs req with token and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, token string, req Request, out any) error {
	return c.do(ctx, token, req.Endpoint, c.URL(req), out)
}

// GetURL follows an absolute URL returned by the API, such as paging.next.
// The URL must use the configured scheme and host so the token is never sent
// elsewhere or in plaintext.
func (c *Client) GetURL(ctx context.Context, token string, endpoint Endpoint, rawURL string, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("[graph GetURL] invalid url: %w", err)
	}
	if u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
		return fmt.Errorf("[graph GetURL] refusing to follow %s://%s outside %s://%s", u.Scheme, u.Host, c.baseURL.Scheme, c.baseURL.Host)
	}
	return c.do(ctx, token, endpoint, u.String(), out)
}

func (c *Client) do(ctx context.Context, token string, endpoint Endpoint, rawURL string, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.observe(endpoint, started, err) }()

	if token == "" {
		return fmt.Errorf("[graph %s] missing access token", endpoint)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("[graph %s] build request: %w", endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.bearerClient(token).Do(httpReq)
	if err != nil {
		return fmt.Errorf("[graph %s] request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("[graph %s] read body: %w", endpoint, err)
	}

	log.Debug().
		Str("endpoint", string(endpoint)).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("graph request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}
	// Graph occasionally reports errors with a 200
	if apiErr := decodeAPIError(resp.StatusCode, body); apiErr.Code != 0 {
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[graph %s] decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) bearerClient(token string) *http.Client {
	timeout := c.httpClient.Timeout
	if c.timeout > 0 {
		timeout = c.timeout
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
		Timeout: timeout,
	}
}
