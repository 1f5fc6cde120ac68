// Package api exposes the scan, unlock, waitlist and badge operations over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/notify"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/platform/errs"
	"github.com/Bahjat/comply-scanner/internal/platform/metrics"
	"github.com/Bahjat/comply-scanner/internal/platform/requestid"
	"github.com/Bahjat/comply-scanner/internal/report"
	"github.com/Bahjat/comply-scanner/internal/store"
)

const notifyTimeout = 10 * time.Second

var (
	errURLRequired     = errors.New("the \"websiteUrl\" field is required")
	errSessionRequired = errors.New("a session id is required")
	errEmailRequired   = errors.New("the \"email\" field is required")
	errInvalidEmail    = errors.New("invalid email format")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ScanRequest asks for a scan of WebsiteURL under a caller-chosen session id.
type ScanRequest struct {
	WebsiteURL      string `json:"websiteUrl"`
	ClientSessionID string `json:"clientSessionId"`
	UserID          string `json:"userId,omitempty"`
}

func (r ScanRequest) validate() error {
	if strings.TrimSpace(r.WebsiteURL) == "" {
		return errURLRequired
	}
	if strings.TrimSpace(r.ClientSessionID) == "" {
		return errSessionRequired
	}
	return nil
}

// UnlockRequest trades an email address for the full report of a session.
type UnlockRequest struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
}

func (r UnlockRequest) validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return errSessionRequired
	}
	if r.Email == "" {
		return errEmailRequired
	}
	if !emailPattern.MatchString(r.Email) {
		return errInvalidEmail
	}
	return nil
}

// WaitlistRequest signs an email address up for the product waitlist.
type WaitlistRequest struct {
	Email string `json:"email"`
}

func (r WaitlistRequest) validate() error {
	if r.Email == "" {
		return errEmailRequired
	}
	if !emailPattern.MatchString(r.Email) {
		return errInvalidEmail
	}
	return nil
}

// Service runs scans behind the quota guard and result cache and serves
// stored reports.
type Service struct {
	Deps
	sem    *semaphore.Weighted
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewService returns a Service running at most maxConcurrent scans at once.
func NewService(deps Deps, maxConcurrent int64, logger *slog.Logger) *Service {
	return &Service{
		Deps:   deps,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
		now:    time.Now,
	}
}

// Scan validates and normalizes the request, enforces the client quota,
// answers from the cache when possible and otherwise runs and persists a new
// scan. Errors are *errs.AppError.
func (s *Service) Scan(ctx context.Context, req ScanRequest, clientID string) (*model.ScanResponse, error) {
	start := s.now()
	logger := s.logger.With(
		"request_id", requestid.FromContext(ctx),
		"session_id", req.ClientSessionID,
		"client_id", clientID,
	)

	if err := req.validate(); err != nil {
		metrics.ScansTotal.WithLabelValues("invalid").Inc()
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: err.Error()}
	}
	target, err := pageinsight.Normalize(req.WebsiteURL)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("invalid").Inc()
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid URL format", Cause: err}
	}
	logger = logger.With("url", target)

	// The slot is held until the record (or failed attempt) is stored.
	_, release, err := s.Quota.Reserve(ctx, clientID)
	if err != nil {
		metrics.RateLimited.Inc()
		metrics.ScansTotal.WithLabelValues("rate_limited").Inc()
		logger.Info("scan rate limited")
		return nil, err
	}
	defer release()

	if rec := s.Cache.Lookup(ctx, target); rec != nil {
		metrics.CacheHits.Inc()
		metrics.ScansTotal.WithLabelValues("cached").Inc()
		logger.Info("scan served from cache", "cached_session_id", rec.SessionID)
		return cachedResponse(rec), nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, &errs.AppError{Kind: errs.Timeout, Message: "The scanner is busy. Please try again shortly.", Cause: err}
	}
	defer s.sem.Release(1)

	res, err := s.Scanner.Scan(ctx, target, start)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		s.persistFailure(ctx, logger, req, target, clientID, start)
		return nil, err
	}
	metrics.ScanDuration.Observe(res.Duration.Seconds())

	rec := res.Record(req.ClientSessionID, clientID)
	rec.UserID = req.UserID
	if err := s.Store.Insert(ctx, rec); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			metrics.ScansTotal.WithLabelValues("failed").Inc()
			logger.Error("persisting scan failed", "error", err)
			return nil, &errs.AppError{Kind: errs.PersistenceFailure, Message: "Could not save the scan results.", Cause: err}
		}
		logger.Warn("session already stored, returning results", "error", err)
	}

	metrics.ScansTotal.WithLabelValues("completed").Inc()
	logger.Info("scan complete",
		"issues", res.Summary.Total,
		"score", res.OverallScore,
		"pages", res.PagesScanned,
		"pdfs", len(res.PdfResults),
		"vendors", len(res.VendorWarnings),
		"duration", res.Duration.String(),
	)

	return &model.ScanResponse{
		Success:        true,
		SessionID:      req.ClientSessionID,
		Summary:        res.Summary,
		Teaser:         res.Teaser,
		PagesScanned:   res.PagesScanned,
		PageResults:    res.PageResults,
		PdfResults:     res.PdfResults,
		VendorWarnings: res.VendorWarnings,
	}, nil
}

// persistFailure stores a zero-finding record of a failed attempt.
func (s *Service) persistFailure(ctx context.Context, logger *slog.Logger, req ScanRequest, target, clientID string, start time.Time) {
	rec := &model.ScanRecord{
		SessionID:    req.ClientSessionID,
		WebsiteURL:   target,
		ClientID:     clientID,
		ScanDuration: s.now().Sub(start),
		Summary:      model.Summarize(nil),
		UserID:       req.UserID,
	}
	if err := s.Store.Insert(context.WithoutCancel(ctx), rec); err != nil && !errors.Is(err, store.ErrDuplicate) {
		logger.Warn("persisting failed attempt failed", "error", err)
	}
}

func cachedResponse(rec *model.ScanRecord) *model.ScanResponse {
	return &model.ScanResponse{
		Success:        true,
		SessionID:      rec.SessionID,
		Summary:        rec.Summary,
		Teaser:         model.NewTeaser(rec.Findings, rec.Summary),
		PagesScanned:   rec.PagesScanned,
		PageResults:    rec.PageResults,
		PdfResults:     rec.PdfResults,
		VendorWarnings: rec.VendorWarnings,
		Cached:         true,
	}
}

// Unlock attaches email to the session's record, emails the full report and
// returns it. Delivery and notification are best-effort.
func (s *Service) Unlock(ctx context.Context, req UnlockRequest) (*model.UnlockResponse, error) {
	logger := s.logger.With("request_id", requestid.FromContext(ctx), "session_id", req.SessionID)

	if err := req.validate(); err != nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: err.Error()}
	}

	rec, err := s.Store.BySession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &errs.AppError{Kind: errs.NotFound, Message: "Scan not found. Please run a new scan.", Cause: err}
		}
		logger.Error("loading scan failed", "error", err)
		return nil, &errs.AppError{Kind: errs.PersistenceFailure, Message: "Could not load the scan.", Cause: err}
	}
	logger = logger.With("url", rec.WebsiteURL)

	captured := s.now().UTC()
	if err := s.Store.Update(ctx, req.SessionID, model.RecordUpdate{Email: &req.Email, EmailCapturedAt: &captured}); err != nil {
		logger.Warn("recording email failed", "error", err)
	}
	rec.Email, rec.EmailCapturedAt = req.Email, &captured

	if err := s.Store.UpsertWaitlist(ctx, req.Email, rec.WebsiteURL); err != nil {
		logger.Warn("waitlist upsert failed", "error", err)
	}

	sent := s.sendReport(ctx, logger, req.Email, rec)
	if sent {
		sentAt := s.now().UTC()
		if err := s.Store.Update(ctx, req.SessionID, model.RecordUpdate{ReportSentAt: &sentAt}); err != nil {
			logger.Warn("recording report delivery failed", "error", err)
		}
		rec.ReportSentAt = &sentAt
	}

	s.notifyUnlock(ctx, logger, req.Email, rec)
	logger.Info("report unlocked", "report_sent", sent)

	findings := rec.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	return &model.UnlockResponse{
		Success:        true,
		Findings:       findings,
		Summary:        rec.Summary,
		WebsiteURL:     rec.WebsiteURL,
		PageResults:    rec.PageResults,
		PdfResults:     rec.PdfResults,
		VendorWarnings: rec.VendorWarnings,
		ReportSent:     sent,
	}, nil
}

func (s *Service) sendReport(ctx context.Context, logger *slog.Logger, email string, rec *model.ScanRecord) bool {
	body, err := report.EmailHTML(rec)
	if err != nil {
		metrics.ReportsSent.WithLabelValues("failed").Inc()
		logger.Warn("rendering report email failed", "error", err)
		return false
	}

	msg := notify.Email{To: email, Subject: report.Subject(rec), HTML: body}
	if pdf, err := s.PDF.Generate(rec); err != nil {
		logger.Warn("rendering report pdf failed, sending without attachment", "error", err)
	} else {
		msg.Attachments = []notify.Attachment{{Filename: reportFilename(rec.WebsiteURL), Content: pdf}}
	}

	err = s.Mailer.Send(ctx, msg)
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		metrics.ReportsSent.WithLabelValues("skipped").Inc()
		logger.Info("email delivery not configured, report not sent")
		return false
	case err != nil:
		metrics.ReportsSent.WithLabelValues("failed").Inc()
		logger.Warn("sending report email failed", "error", err)
		return false
	}
	metrics.ReportsSent.WithLabelValues("sent").Inc()
	return true
}

// notifyUnlock posts the unlock to the sales channel without holding up the
// response.
func (s *Service) notifyUnlock(ctx context.Context, logger *slog.Logger, email string, rec *model.ScanRecord) {
	s.background(ctx, func(ctx context.Context) {
		if err := s.Notifier.ReportUnlocked(ctx, email, rec); err != nil {
			logger.Warn("unlock notification failed", "error", err)
		}
	})
}

// background runs fn detached from the request with notifyTimeout. Wait
// blocks until it returns.
func (s *Service) background(ctx context.Context, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		fn(ctx)
	}()
}

// JoinWaitlist stores a waitlist sign-up, sends the welcome email and
// announces the sign-up. Only the store write can fail the request.
func (s *Service) JoinWaitlist(ctx context.Context, req WaitlistRequest) (*model.WaitlistResponse, error) {
	logger := s.logger.With("request_id", requestid.FromContext(ctx))

	if err := req.validate(); err != nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: err.Error()}
	}

	if err := s.Store.UpsertWaitlist(ctx, req.Email, ""); err != nil {
		logger.Error("storing waitlist sign-up failed", "error", err)
		return nil, &errs.AppError{Kind: errs.PersistenceFailure, Message: "Could not join the waitlist.", Cause: err}
	}

	sent := s.sendWelcome(ctx, logger, req.Email)

	s.background(ctx, func(ctx context.Context) {
		if err := s.Notifier.WaitlistJoined(ctx, req.Email); err != nil {
			logger.Warn("waitlist notification failed", "error", err)
		}
	})
	logger.Info("waitlist sign-up", "welcome_sent", sent)

	return &model.WaitlistResponse{Success: true, Email: req.Email, WelcomeSent: sent}, nil
}

func (s *Service) sendWelcome(ctx context.Context, logger *slog.Logger, email string) bool {
	body, err := report.WelcomeHTML(email)
	if err != nil {
		metrics.WaitlistSignups.WithLabelValues("failed").Inc()
		logger.Warn("rendering welcome email failed", "error", err)
		return false
	}

	err = s.Mailer.Send(ctx, notify.Email{To: email, Subject: report.WelcomeSubject, HTML: body})
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		metrics.WaitlistSignups.WithLabelValues("skipped").Inc()
		logger.Info("email delivery not configured, welcome not sent")
		return false
	case err != nil:
		metrics.WaitlistSignups.WithLabelValues("failed").Inc()
		logger.Warn("sending welcome email failed", "error", err)
		return false
	}
	metrics.WaitlistSignups.WithLabelValues("sent").Inc()
	return true
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Badge renders the score badge of a session. Unknown sessions get an error
// badge.
func (s *Service) Badge(ctx context.Context, sessionID string) []byte {
	rec, err := s.Store.BySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return report.ErrorBadge("Badge not found")
		}
		s.logger.WarnContext(ctx, "badge lookup failed", "session_id", sessionID, "error", err)
		return report.ErrorBadge("Error")
	}
	if rec.Failed() {
		return report.Badge(nil, &rec.CreatedAt)
	}
	score := rec.OverallScore
	return report.Badge(&score, &rec.CreatedAt)
}

// Health reports whether the record store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

func reportFilename(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil || u.Hostname() == "" {
		return "accessibility-report.pdf"
	}
	return "accessibility-report-" + strings.TrimPrefix(u.Hostname(), "www.") + ".pdf"
}
