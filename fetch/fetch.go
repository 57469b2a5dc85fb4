// Package fetch retrieves JSON documents from an ordered list of candidate
// URLs, accepting the first one that answers with a JSON payload.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 32 << 20 // 32MB
)

// ErrNoResource is returned when no candidate URL produced a JSON payload.
var ErrNoResource = errors.New("no matching resource found")

// Fetcher is the contract the loaders depend on.
type Fetcher interface {
	FetchSequential(ctx context.Context, urls []string) (json.RawMessage, error)
}

// Client fetches candidate URLs in order against an origin and base path.
type Client struct {
	http   *http.Client
	origin *url.URL
	base   BasePath
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for per-candidate debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client. origin is the scheme and host that root-relative
// candidates are resolved against (for example "https://cdn.example.com").
func New(origin string, base BasePath, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("fetch: origin %q must be absolute", origin)
	}
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		origin: u,
		base:   base,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BasePath returns the base path candidates are resolved with.
func (c *Client) BasePath() BasePath {
	return c.base
}

// Normalize trims, deduplicates and resolves candidates against the origin.
// Candidates are expected to carry the base path already (see
// BasePath.Candidates); it is not applied a second time.
func (c *Client) Normalize(urls []string) []string {
	var list []string
	for _, raw := range (BasePath{}).ResolveAll(urls) {
		ref, err := url.Parse(raw)
		if err != nil {
			continue
		}
		list = append(list, c.origin.ResolveReference(ref).String())
	}
	return uniq(list)
}

// FetchSequential tries each candidate strictly in order and returns the
// first payload served with a JSON content type that parses as JSON. A
// failing candidate (transport error, non-2xx, wrong content type, bad JSON)
// moves on to the next one; there are no retries beyond the list.
func (c *Client) FetchSequential(ctx context.Context, urls []string) (json.RawMessage, error) {
	list := c.Normalize(urls)
	if len(list) == 0 {
		return nil, ErrNoResource
	}
	for _, u := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := c.try(ctx, u)
		if err != nil {
			c.logger.Debug("fetch candidate rejected", "url", u, "error", err)
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: tried %d candidates", ErrNoResource, len(list))
}

func (c *Client) try(ctx context.Context, u string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !IsJSONContentType(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("content type %q", resp.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("invalid JSON body")
	}
	return json.RawMessage(body), nil
}

// IsJSONContentType reports whether a Content-Type header names a JSON type.
func IsJSONContentType(ct string) bool {
	return ct != "" && strings.Contains(strings.ToLower(ct), "json")
}

// Fetch runs FetchSequential and decodes the accepted payload into T.
func Fetch[T any](ctx context.Context, f Fetcher, urls []string) (T, error) {
	var v T
	raw, err := f.FetchSequential(ctx, urls)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("fetch: decode: %w", err)
	}
	return v, nil
}
