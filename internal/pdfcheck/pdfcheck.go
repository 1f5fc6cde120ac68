// Package pdfcheck inspects linked PDF documents for the structural markers
// assistive technology relies on.
package pdfcheck

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/platform/metrics"
)

const (
	// MaxPDFs caps how many documents are inspected per scan.
	MaxPDFs = 10
	// PrefixBytes is how much of each document is fetched.
	PrefixBytes    = 32 << 10
	requestTimeout = 8 * time.Second
)

// Inspector fetches the head of each PDF and looks for language, tagging and
// title markers.
type Inspector struct {
	fetcher pageinsight.RangeFetcher
	logger  *slog.Logger
	timeout time.Duration
}

// NewInspector returns an Inspector using fetcher for partial downloads.
func NewInspector(fetcher pageinsight.RangeFetcher, logger *slog.Logger) *Inspector {
	return &Inspector{fetcher: fetcher, logger: logger, timeout: requestTimeout}
}

// Inspect checks up to MaxPDFs documents one at a time. A failed fetch yields
// a result with Error set; it never aborts the remaining checks.
func (in *Inspector) Inspect(ctx context.Context, pdfURLs []string) []model.PdfCheckResult {
	if len(pdfURLs) > MaxPDFs {
		pdfURLs = pdfURLs[:MaxPDFs]
	}

	results := make([]model.PdfCheckResult, 0, len(pdfURLs))
	for _, u := range pdfURLs {
		results = append(results, in.inspectOne(ctx, u))
	}
	return results
}

func (in *Inspector) inspectOne(ctx context.Context, pdfURL string) model.PdfCheckResult {
	result := model.PdfCheckResult{URL: pdfURL, Filename: Filename(pdfURL)}

	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	data, err := in.fetcher.FetchRange(ctx, pdfURL, PrefixBytes)
	if err != nil {
		in.logger.WarnContext(ctx, "pdf inspection failed", "step", "pdf", "url", pdfURL, "error", err)
		metrics.PDFChecks.WithLabelValues("error").Inc()
		result.Error = err.Error()
		return result
	}

	result.HasLangTag, result.HasMarkInfo, result.HasTitle = Markers(data)
	result.IsAccessible = result.HasLangTag && result.HasMarkInfo

	if result.IsAccessible {
		metrics.PDFChecks.WithLabelValues("accessible").Inc()
	} else {
		metrics.PDFChecks.WithLabelValues("inaccessible").Inc()
	}
	return result
}

// Markers decodes data as Latin-1 and reports which structural markers it
// contains. A StructTreeRoot counts as tagged content.
func Markers(data []byte) (lang, markInfo, title bool) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		decoded = data
	}
	text := string(decoded)

	lang = strings.Contains(text, "/Lang")
	markInfo = strings.Contains(text, "/MarkInfo") || strings.Contains(text, "/StructTreeRoot")
	title = strings.Contains(text, "/Title")
	return lang, markInfo, title
}

// Filename returns the unescaped last path segment of a PDF URL.
func Filename(pdfURL string) string {
	u, err := url.Parse(pdfURL)
	if err != nil {
		return pdfURL
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return pdfURL
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
