// Package scanner drives a scan: it audits the root page, plans the crawl,
// audits prioritized sub-pages within a wall-clock budget and aggregates the
// results.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/Bahjat/comply-scanner/internal/audit"
	"github.com/Bahjat/comply-scanner/internal/enrich"
	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/platform/errs"
	"github.com/Bahjat/comply-scanner/internal/platform/metrics"
	"github.com/Bahjat/comply-scanner/internal/vendor"
)

const (
	// SubpageCutoff skips sub-pages entirely when the root took longer.
	SubpageCutoff = 20 * time.Second
	// TotalBudget stops starting new sub-page audits.
	TotalBudget = 45 * time.Second
	// MaxSubpages caps how many discovered pages are audited.
	MaxSubpages = 2
)

// pageLoader fetches and parses a page.
type pageLoader interface {
	Load(ctx context.Context, targetURL string) (*pageinsight.Page, error)
}

// pdfInspector checks linked PDF documents.
type pdfInspector interface {
	Inspect(ctx context.Context, pdfURLs []string) []model.PdfCheckResult
}

// Result is the aggregated outcome of a scan.
type Result struct {
	RootURL        string
	FinalURL       string
	HTTPStatus     int
	PageResults    []model.PageResult
	Findings       []model.Finding
	Summary        model.Summary
	Teaser         model.Teaser
	OverallScore   int
	PagesScanned   int
	PdfResults     []model.PdfCheckResult
	VendorWarnings []model.VendorWarning
	Duration       time.Duration
	States         []State
}

// Record converts the result into a storable scan record.
func (r *Result) Record(sessionID, clientID string) *model.ScanRecord {
	return &model.ScanRecord{
		SessionID:      sessionID,
		WebsiteURL:     r.RootURL,
		ClientID:       clientID,
		HTTPStatus:     r.HTTPStatus,
		ScanDuration:   r.Duration,
		Findings:       r.Findings,
		Summary:        r.Summary,
		PageResults:    r.PageResults,
		PagesScanned:   r.PagesScanned,
		PdfResults:     r.PdfResults,
		VendorWarnings: r.VendorWarnings,
		OverallScore:   r.OverallScore,
	}
}

// Engine runs scans. It is safe for concurrent use; each Scan call owns its
// own state.
type Engine struct {
	loader  pageLoader
	auditor audit.Auditor
	pdfs    pdfInspector
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for budget checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the pipeline collaborators.
func NewEngine(loader pageLoader, auditor audit.Auditor, pdfs pdfInspector, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		loader:  loader,
		auditor: auditor,
		pdfs:    pdfs,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run tracks one scan through its states.
type run struct {
	*Engine
	ctx    context.Context
	start  time.Time
	result *Result
}

func (r *run) enter(s State) {
	r.result.States = append(r.result.States, s)
	r.logger.DebugContext(r.ctx, "scan state", "url", r.result.RootURL, "state", s.String())
}

func (r *run) elapsed() time.Duration {
	return r.now().Sub(r.start)
}

// Scan audits rootURL and up to MaxSubpages discovered pages. start is when
// the pipeline began (before quota and cache checks) and anchors the budget.
// Root failures are returned as *errs.AppError; sub-page, PDF and vendor
// failures are logged and skipped.
func (e *Engine) Scan(ctx context.Context, rootURL string, start time.Time) (*Result, error) {
	r := &run{Engine: e, ctx: ctx, start: start, result: &Result{RootURL: rootURL}}
	r.enter(Idle)

	r.enter(ScanningRoot)
	page, report, err := r.auditPage(rootURL)
	if err != nil {
		r.enter(Errored)
		metrics.PagesAudited.WithLabelValues("failed").Inc()
		e.logger.ErrorContext(ctx, "root scan failed", "url", rootURL, "error", err)
		return nil, rootError(err)
	}
	metrics.PagesAudited.WithLabelValues("ok").Inc()
	r.result.FinalURL = page.FinalURL
	r.result.HTTPStatus = page.StatusCode

	r.enter(CrawlPlanning)
	links := r.planCrawl(page)

	rootFindings := enrich.Report(report, rootURL)
	if f, ok := enrich.PdfFinding(r.result.PdfResults, rootURL); ok {
		rootFindings = append([]model.Finding{f}, rootFindings...)
	}
	if f, ok := enrich.VendorFinding(r.result.VendorWarnings, rootURL); ok {
		rootFindings = append(rootFindings, f)
	}
	r.result.PageResults = append(r.result.PageResults,
		model.NewPageResult(rootURL, pageTitle(report, page), percent(report.Score), model.SortBySeverity(rootFindings)))

	if elapsed := r.elapsed(); elapsed > SubpageCutoff {
		e.logger.WarnContext(ctx, "skipping sub-pages, root scan too slow", "url", rootURL, "elapsed", elapsed.String())
		metrics.PagesAudited.WithLabelValues("skipped").Add(float64(min(len(links), MaxSubpages)))
	} else {
		r.enter(ScanningSubpages)
		r.scanSubpages(links)
	}

	r.enter(Aggregating)
	r.aggregate()
	r.enter(Done)
	return r.result, nil
}

func (r *run) auditPage(target string) (*pageinsight.Page, *audit.Report, error) {
	page, err := r.loader.Load(r.ctx, target)
	if err != nil {
		return nil, nil, err
	}
	report, err := r.auditor.Audit(r.ctx, audit.Page{
		URL:        page.URL,
		FinalURL:   page.FinalURL,
		StatusCode: page.StatusCode,
		Doc:        page.Doc,
	})
	if err != nil {
		return nil, nil, err
	}
	return page, report, nil
}

// planCrawl runs the link discoverer, PDF inspector and vendor detector on
// the root markup.
func (r *run) planCrawl(page *pageinsight.Page) []string {
	var links []string
	if base, err := url.Parse(page.FinalURL); err != nil {
		r.logger.WarnContext(r.ctx, "crawl planning failed", "step", "crawl", "url", page.FinalURL, "error", err)
	} else {
		links = pageinsight.DiscoverLinks(page.Doc, base)
	}
	if len(page.Doc.PDFLinks) > 0 {
		r.result.PdfResults = r.pdfs.Inspect(r.ctx, page.Doc.PDFLinks)
	}
	r.result.VendorWarnings = vendor.Detect(page.Doc)
	return links
}

// scanSubpages audits discovered links in order until MaxSubpages succeed.
// A failed link is replaced by the next candidate.
func (r *run) scanSubpages(links []string) {
	audited := 0
	for i, link := range links {
		if audited == MaxSubpages {
			return
		}
		if elapsed := r.elapsed(); elapsed > TotalBudget {
			r.logger.WarnContext(r.ctx, "scan budget exhausted, stopping sub-pages",
				"url", r.result.RootURL, "elapsed", elapsed.String(), "remaining", len(links)-i)
			metrics.PagesAudited.WithLabelValues("skipped").Add(float64(min(len(links)-i, MaxSubpages-audited)))
			return
		}

		page, report, err := r.auditPage(link)
		if err != nil {
			err = &errs.AppError{Kind: errs.SubScanFailed, Message: "sub-page scan failed", Cause: err}
			r.logger.WarnContext(r.ctx, "sub-page scan failed", "step", "subpage", "url", link, "error", err)
			metrics.PagesAudited.WithLabelValues("failed").Inc()
			continue
		}
		metrics.PagesAudited.WithLabelValues("ok").Inc()
		audited++

		r.result.PageResults = append(r.result.PageResults,
			model.NewPageResult(link, pageTitle(report, page), percent(report.Score), enrich.Report(report, link)))
	}
}

func (r *run) aggregate() {
	res := r.result
	for _, p := range res.PageResults {
		res.Findings = append(res.Findings, p.Findings...)
	}
	res.OverallScore = model.MeanScore(res.PageResults)
	res.Summary = model.Summarize(res.Findings).WithScore(res.OverallScore)
	res.Teaser = model.NewTeaser(res.Findings, res.Summary)
	res.PagesScanned = len(res.PageResults)
	res.Duration = r.elapsed()
}

// rootError classifies a root failure, keeping the loader's classification
// when it already carries one.
func rootError(err error) error {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &errs.AppError{Kind: errs.Timeout, Message: "The website took too long to respond.", Cause: err}
	}
	return &errs.AppError{Kind: errs.RootFetchFailed, Message: "The accessibility audit of the website failed.", Cause: err}
}

func pageTitle(report *audit.Report, page *pageinsight.Page) string {
	if report.Title != "" {
		return report.Title
	}
	return page.Doc.Title
}

func percent(score float64) int {
	return model.ClampScore(int(math.Round(score * 100)))
}
