package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

// Response is a fetched page. Callers must close Body.
type Response struct {
	Body       io.ReadCloser
	StatusCode int
	FinalURL   string // URL after redirects
}

// Fetcher defines how the scanner retrieves raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// RangeFetcher retrieves the leading bytes of a document.
type RangeFetcher interface {
	FetchRange(ctx context.Context, url string, n int64) ([]byte, error)
}

// limitedReadCloser reads from a LimitReader but closes the original body.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// HTTPClient implements Fetcher and RangeFetcher using a real HTTP client.
type HTTPClient struct {
	client *http.Client
}

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20
	pageTimeout     = 10 * time.Second
	userAgent       = "ComplyBot/1.0 (Accessibility Scanner; +https://getcomply.tech)"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
	errUpstreamStatus   = errors.New("unexpected upstream status")
)

// NewHTTPClient returns a client with a 10s timeout, a dedicated transport
// that resolves through resolver (when non-nil) and blocks connections to
// private/reserved IP ranges, and redirect validation that prevents SSRF via
// redirect chains.
func NewHTTPClient(resolver *dnscache.Resolver) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: pageTimeout,
			Transport: &http.Transport{
				DialContext:         safeDialContext(resolver),
				MaxConnsPerHost:     10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: safeRedirectPolicy,
		},
	}
}

// Client exposes the underlying http.Client so other outbound integrations
// share the same SSRF-safe transport.
func (c *HTTPClient) Client() *http.Client {
	return c.client
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch retrieves the page at the given URL and returns its body, capped at 10 MB.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req) //nolint:bodyclose // body is returned to caller via limitedReadCloser
	if err != nil {
		return nil, err
	}

	return &Response{
		Body: &limitedReadCloser{
			Reader: io.LimitReader(resp.Body, maxResponseBody),
			Closer: resp.Body,
		},
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// FetchRange asks for the first n bytes of the document and reads at most n
// bytes of the response, whether or not the server honoured the Range header.
func (c *HTTPClient) FetchRange(ctx context.Context, targetURL string, n int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, n))
}
