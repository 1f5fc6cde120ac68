package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/comply-scanner/internal/platform/errs"
)

var errConnectionRefused = errors.New("connection refused")

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	body       string
	statusCode int
	finalURL   string
	err        error
	calls      int
}

func (m *mockFetcher) Fetch(_ context.Context, _ string) (*Response, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Response{
		Body:       io.NopCloser(strings.NewReader(m.body)),
		StatusCode: m.statusCode,
		FinalURL:   m.finalURL,
	}, nil
}

func TestLoader_Load_Success(t *testing.T) {
	fetcher := &mockFetcher{
		body:       `<html lang="en"><head><title>Clinic</title></head><body><h1>Welcome</h1><a href="/contact">Contact</a></body></html>`,
		statusCode: 200,
		finalURL:   "https://www.example.com/",
	}

	page, err := NewLoader(fetcher).Load(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "https://example.com", page.URL)
	assert.Equal(t, "https://www.example.com/", page.FinalURL)
	assert.Equal(t, "Clinic", page.Doc.Title)
	assert.Equal(t, "en", page.Doc.Lang)
	require.Len(t, page.Doc.Links, 1)
	assert.Equal(t, "https://www.example.com/contact", page.Doc.Links[0].URL, "links resolve against the final URL")
}

func TestLoader_Load_DefaultsFinalURL(t *testing.T) {
	page, err := NewLoader(&mockFetcher{body: "<p>x</p>", statusCode: 200}).Load(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", page.FinalURL)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		fetcher    *mockFetcher
		wantKind   errs.Kind
		wantStatus int
	}{
		{
			name:     "fetch error",
			url:      "https://down.example.com",
			fetcher:  &mockFetcher{err: errConnectionRefused},
			wantKind: errs.RootFetchFailed,
		},
		{
			name:     "deadline",
			url:      "https://slow.example.com",
			fetcher:  &mockFetcher{err: fmt.Errorf("get: %w", context.DeadlineExceeded)},
			wantKind: errs.Timeout,
		},
		{
			name:       "error status",
			url:        "https://example.com/missing",
			fetcher:    &mockFetcher{statusCode: 404, body: "not found"},
			wantKind:   errs.RootFetchFailed,
			wantStatus: 404,
		},
		{
			name:     "non-http scheme",
			url:      "ftp://example.com",
			fetcher:  &mockFetcher{statusCode: 200},
			wantKind: errs.InvalidInput,
		},
		{
			name:     "missing host",
			url:      "https://",
			fetcher:  &mockFetcher{statusCode: 200},
			wantKind: errs.InvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(tt.fetcher).Load(context.Background(), tt.url)

			var appErr *errs.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.wantStatus, appErr.UpstreamStatus)
		})
	}
}
