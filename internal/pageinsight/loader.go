package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Bahjat/comply-scanner/internal/platform/errs"
)

// Page is a fetched and parsed HTML document.
type Page struct {
	URL        string // URL as requested
	FinalURL   string // URL after redirects
	StatusCode int
	Doc        *ParseResult
}

// Loader fetches a page and parses it into a ParseResult. Each call issues
// exactly one GET.
type Loader struct {
	fetcher Fetcher
}

// NewLoader returns a Loader backed by the given Fetcher.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load fetches targetURL and parses the response body. Transport failures and
// HTTP error statuses are reported as errs.RootFetchFailed, or errs.Timeout
// when the context deadline expired.
func (l *Loader) Load(ctx context.Context, targetURL string) (*Page, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
			Cause:   err,
		}
	}

	resp, err := l.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &errs.AppError{
				Kind:    errs.Timeout,
				Message: "The website took too long to respond.",
				Cause:   err,
			}
		}
		return nil, &errs.AppError{
			Kind:    errs.RootFetchFailed,
			Message: "The provided URL could not be reached. Check the address.",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &errs.AppError{
			Kind:           errs.RootFetchFailed,
			UpstreamStatus: resp.StatusCode,
			Message:        fmt.Sprintf("The provided URL returned status %d.", resp.StatusCode),
		}
	}

	finalURL := resp.FinalURL
	if finalURL == "" {
		finalURL = targetURL
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		base = parsed
	}

	doc, err := Parse(resp.Body, base)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "Failed to parse the HTML content.",
			Cause:   err,
		}
	}

	return &Page{
		URL:        targetURL,
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Doc:        doc,
	}, nil
}
