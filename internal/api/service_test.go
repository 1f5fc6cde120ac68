package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/comply-scanner/internal/audit"
	"github.com/Bahjat/comply-scanner/internal/cache"
	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/notify"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/platform/errs"
	"github.com/Bahjat/comply-scanner/internal/quota"
	"github.com/Bahjat/comply-scanner/internal/report"
	"github.com/Bahjat/comply-scanner/internal/scanner"
	"github.com/Bahjat/comply-scanner/internal/store"
)

const (
	clinicURL  = "https://clinic.com"
	clinicPage = `<html><head><title>Family Clinic</title></head><body><h1>Welcome</h1><img src="team.png"></body></html>`
	testClient = "203.0.113.7"
)

var errUnknownHost = errors.New("no such host")

type fakePage struct {
	status int
	body   string
}

// fakeFetcher implements pageinsight.Fetcher over a fixed set of pages.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fakePage
	errs  map[string]error
	calls int
	delay time.Duration
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*pageinsight.Response, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	p, ok := f.pages[url]
	if !ok {
		return nil, errUnknownHost
	}
	return &pageinsight.Response{Body: io.NopCloser(strings.NewReader(p.body)), StatusCode: p.status, FinalURL: url}, nil
}

// countingAuditor wraps the local auditor and counts audits.
type countingAuditor struct {
	mu    sync.Mutex
	calls int
}

func (a *countingAuditor) Audit(ctx context.Context, page audit.Page) (*audit.Report, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return audit.NewLocalAuditor().Audit(ctx, page)
}

func (a *countingAuditor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type noPDFs struct{}

func (noPDFs) Inspect(context.Context, []string) []model.PdfCheckResult { return nil }

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg notify.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	emails   []string
	waitlist []string
}

func (n *fakeNotifier) WaitlistJoined(_ context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waitlist = append(n.waitlist, email)
	return nil
}

func (n *fakeNotifier) ReportUnlocked(_ context.Context, email string, _ *model.ScanRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	return nil
}

type fixture struct {
	svc      *Service
	store    *store.Store
	fetcher  *fakeFetcher
	auditor  *countingAuditor
	mailer   *fakeMailer
	notifier *fakeNotifier
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fx := &fixture{
		store: st,
		fetcher: &fakeFetcher{
			pages: map[string]fakePage{clinicURL: {status: 200, body: clinicPage}},
			errs:  map[string]error{},
		},
		auditor:  &countingAuditor{},
		mailer:   &fakeMailer{},
		notifier: &fakeNotifier{},
	}
	engine := scanner.NewEngine(pageinsight.NewLoader(fx.fetcher), fx.auditor, noPDFs{}, logger)
	fx.svc = NewService(Deps{
		Scanner:  engine,
		Store:    st,
		Quota:    quota.NewGuard(st, limit, logger),
		Cache:    cache.New(st, time.Hour, logger),
		Mailer:   fx.mailer,
		Notifier: fx.notifier,
		PDF:      report.NewPDFGenerator(),
	}, 2, logger)
	return fx
}

// seed stores a successful record for clientID.
func (fx *fixture) seed(t *testing.T, session, url, clientID string) {
	t.Helper()
	require.NoError(t, fx.store.Insert(context.Background(), &model.ScanRecord{
		SessionID:  session,
		WebsiteURL: url,
		ClientID:   clientID,
		HTTPStatus: 200,
		Summary:    model.Summarize(nil).WithScore(100),
	}))
}

func requireKind(t *testing.T, err error, kind errs.Kind) *errs.AppError {
	t.Helper()
	var appErr *errs.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, kind, appErr.Kind, "kind %s", appErr.Kind)
	return appErr
}

func TestService_ScanPersistsResult(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()

	resp, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: "Clinic.com/", ClientSessionID: "s1", UserID: "u1"}, testClient)

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Cached)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.High)
	assert.Equal(t, 1, resp.Summary.Medium)
	assert.Equal(t, "1 image(s) missing alt text", resp.Teaser.TopIssue)
	assert.Equal(t, 2, resp.Teaser.IssueCount)
	assert.Equal(t, 1, resp.PagesScanned)

	rec, err := fx.store.BySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, clinicURL, rec.WebsiteURL)
	assert.Equal(t, testClient, rec.ClientID)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, 200, rec.HTTPStatus)
	assert.Len(t, rec.Findings, 2)
	assert.Equal(t, resp.Summary.Score(), rec.OverallScore)
}

func TestService_ScanCachedPerformsNoAudits(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()

	first, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s1"}, testClient)
	require.NoError(t, err)
	audits, fetches := fx.auditor.count(), fx.fetcher.calls

	second, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: "CLINIC.COM", ClientSessionID: "s2"}, "198.51.100.1")

	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "s1", second.SessionID)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Teaser, second.Teaser)
	assert.Equal(t, audits, fx.auditor.count())
	assert.Equal(t, fetches, fx.fetcher.calls)

	_, err = fx.store.BySession(ctx, "s2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ScanRateLimit(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	fx.seed(t, "earlier", "https://other.com", testClient)

	_, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s1"}, testClient)
	require.NoError(t, err)
	audits := fx.auditor.count()

	_, err = fx.svc.Scan(ctx, ScanRequest{WebsiteURL: "https://third.com", ClientSessionID: "s2"}, testClient)

	appErr := requireKind(t, err, errs.RateLimited)
	assert.Equal(t, 3600, appErr.RetryAfter)
	assert.Equal(t, audits, fx.auditor.count())

	_, err = fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s3"}, "198.51.100.1")
	require.NoError(t, err, "other clients keep their own quota")
}

func TestService_ScanConcurrentRequestsShareQuota(t *testing.T) {
	fx := newFixture(t, 1)
	fx.fetcher.delay = 200 * time.Millisecond
	for i := range 6 {
		fx.fetcher.pages[fmt.Sprintf("https://site%d.com", i)] = fakePage{status: 200, body: clinicPage}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		limited  int
	)
	for i := range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := ScanRequest{WebsiteURL: fmt.Sprintf("site%d.com", i), ClientSessionID: fmt.Sprintf("s%d", i)}
			_, err := fx.svc.Scan(context.Background(), req, testClient)
			mu.Lock()
			defer mu.Unlock()
			var appErr *errs.AppError
			switch {
			case err == nil:
				admitted++
			case errors.As(err, &appErr) && appErr.Kind == errs.RateLimited:
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, 5, limited)
	assert.Equal(t, 1, fx.auditor.count())

	n, err := fx.store.CountByClient(context.Background(), testClient, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_ScanRootFailurePersistsAttempt(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		kind     errs.Kind
	}{
		{name: "unreachable", fetchErr: errUnknownHost, kind: errs.RootFetchFailed},
		{name: "timeout", fetchErr: context.DeadlineExceeded, kind: errs.Timeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 5)
			ctx := context.Background()
			fx.fetcher.errs[clinicURL] = tt.fetchErr

			_, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s1"}, testClient)

			requireKind(t, err, tt.kind)
			rec, err := fx.store.BySession(ctx, "s1")
			require.NoError(t, err)
			assert.True(t, rec.Failed())
			assert.Empty(t, rec.Findings)
			assert.Equal(t, 0, rec.Summary.Total)

			delete(fx.fetcher.errs, clinicURL)
			resp, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s2"}, testClient)
			require.NoError(t, err)
			assert.False(t, resp.Cached, "failed attempts are never served from cache")
		})
	}
}

func TestService_ScanDuplicateSessionReturnsResults(t *testing.T) {
	fx := newFixture(t, 5)
	fx.seed(t, "dup", "https://other.com", "198.51.100.1")

	resp, err := fx.svc.Scan(context.Background(), ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "dup"}, testClient)

	require.NoError(t, err)
	assert.Equal(t, "dup", resp.SessionID)
	assert.Equal(t, 2, resp.Summary.Total)
}

func TestService_ScanInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  ScanRequest
	}{
		{name: "missing url", req: ScanRequest{ClientSessionID: "s1"}},
		{name: "missing session", req: ScanRequest{WebsiteURL: clinicURL}},
		{name: "bad scheme", req: ScanRequest{WebsiteURL: "ftp://clinic.com", ClientSessionID: "s1"}},
		{name: "no host", req: ScanRequest{WebsiteURL: "https://", ClientSessionID: "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 5)

			_, err := fx.svc.Scan(context.Background(), tt.req, testClient)

			requireKind(t, err, errs.InvalidInput)
			assert.Zero(t, fx.auditor.count())
			_, err = fx.store.BySession(context.Background(), "s1")
			require.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestService_Unlock(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()
	_, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s1"}, testClient)
	require.NoError(t, err)

	resp, err := fx.svc.Unlock(ctx, UnlockRequest{SessionID: "s1", Email: "owner@clinic.com"})
	require.NoError(t, err)
	fx.svc.Wait()

	assert.True(t, resp.Success)
	assert.True(t, resp.ReportSent)
	assert.Equal(t, clinicURL, resp.WebsiteURL)
	assert.Len(t, resp.Findings, 2)
	assert.Len(t, resp.PageResults, 1)

	require.Len(t, fx.mailer.sent, 1)
	msg := fx.mailer.sent[0]
	assert.Equal(t, "owner@clinic.com", msg.To)
	assert.Contains(t, msg.Subject, "2 issues")
	assert.Contains(t, msg.HTML, "Family Clinic")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "accessibility-report-clinic.com.pdf", msg.Attachments[0].Filename)
	assert.True(t, strings.HasPrefix(string(msg.Attachments[0].Content), "%PDF-"))

	rec, err := fx.store.BySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "owner@clinic.com", rec.Email)
	assert.NotNil(t, rec.EmailCapturedAt)
	assert.NotNil(t, rec.ReportSentAt)

	site, err := fx.store.WaitlistSite(ctx, "owner@clinic.com")
	require.NoError(t, err)
	assert.Equal(t, clinicURL, site)

	assert.Equal(t, []string{"owner@clinic.com"}, fx.notifier.emails)
}

func TestService_UnlockDeliverySkipped(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()
	fx.mailer.err = notify.ErrNotConfigured
	fx.seed(t, "s1", clinicURL, testClient)

	resp, err := fx.svc.Unlock(ctx, UnlockRequest{SessionID: "s1", Email: "owner@clinic.com"})
	require.NoError(t, err)
	fx.svc.Wait()

	assert.True(t, resp.Success)
	assert.False(t, resp.ReportSent)
	assert.NotNil(t, resp.Findings)

	rec, err := fx.store.BySession(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, rec.EmailCapturedAt)
	assert.Nil(t, rec.ReportSentAt)
}

func TestService_UnlockErrors(t *testing.T) {
	fx := newFixture(t, 5)
	fx.seed(t, "s1", clinicURL, testClient)

	tests := []struct {
		name string
		req  UnlockRequest
		kind errs.Kind
	}{
		{name: "missing session", req: UnlockRequest{Email: "a@b.co"}, kind: errs.InvalidInput},
		{name: "missing email", req: UnlockRequest{SessionID: "s1"}, kind: errs.InvalidInput},
		{name: "bad email", req: UnlockRequest{SessionID: "s1", Email: "owner at clinic"}, kind: errs.InvalidInput},
		{name: "unknown session", req: UnlockRequest{SessionID: "nope", Email: "a@b.co"}, kind: errs.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Unlock(context.Background(), tt.req)
			requireKind(t, err, tt.kind)
		})
	}
	assert.Empty(t, fx.mailer.sent)
}

func TestService_JoinWaitlist(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()

	resp, err := fx.svc.JoinWaitlist(ctx, WaitlistRequest{Email: "owner@clinic.com"})
	require.NoError(t, err)
	fx.svc.Wait()

	assert.True(t, resp.Success)
	assert.True(t, resp.WelcomeSent)
	assert.Equal(t, "owner@clinic.com", resp.Email)

	require.Len(t, fx.mailer.sent, 1)
	msg := fx.mailer.sent[0]
	assert.Equal(t, "owner@clinic.com", msg.To)
	assert.Equal(t, report.WelcomeSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "You're on the list!")
	assert.Empty(t, msg.Attachments)

	site, err := fx.store.WaitlistSite(ctx, "owner@clinic.com")
	require.NoError(t, err)
	assert.Empty(t, site)
	assert.Equal(t, []string{"owner@clinic.com"}, fx.notifier.waitlist)
	assert.Empty(t, fx.notifier.emails)
}

func TestService_JoinWaitlistKeepsUnlockedSite(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()
	fx.seed(t, "s1", clinicURL, testClient)
	_, err := fx.svc.Unlock(ctx, UnlockRequest{SessionID: "s1", Email: "owner@clinic.com"})
	require.NoError(t, err)

	_, err = fx.svc.JoinWaitlist(ctx, WaitlistRequest{Email: "owner@clinic.com"})
	require.NoError(t, err)
	fx.svc.Wait()

	site, err := fx.store.WaitlistSite(ctx, "owner@clinic.com")
	require.NoError(t, err)
	assert.Equal(t, clinicURL, site)
}

func TestService_JoinWaitlistDeliverySkipped(t *testing.T) {
	fx := newFixture(t, 5)
	fx.mailer.err = notify.ErrNotConfigured

	resp, err := fx.svc.JoinWaitlist(context.Background(), WaitlistRequest{Email: "owner@clinic.com"})
	require.NoError(t, err)
	fx.svc.Wait()

	assert.True(t, resp.Success)
	assert.False(t, resp.WelcomeSent)
	assert.Equal(t, []string{"owner@clinic.com"}, fx.notifier.waitlist)
}

func TestService_JoinWaitlistErrors(t *testing.T) {
	fx := newFixture(t, 5)

	for _, email := range []string{"", "owner at clinic"} {
		_, err := fx.svc.JoinWaitlist(context.Background(), WaitlistRequest{Email: email})
		requireKind(t, err, errs.InvalidInput)
	}

	require.NoError(t, fx.store.Close())
	_, err := fx.svc.JoinWaitlist(context.Background(), WaitlistRequest{Email: "owner@clinic.com"})
	requireKind(t, err, errs.PersistenceFailure)

	fx.svc.Wait()
	assert.Empty(t, fx.mailer.sent)
	assert.Empty(t, fx.notifier.waitlist)
}

func TestService_Badge(t *testing.T) {
	fx := newFixture(t, 5)
	ctx := context.Background()
	resp, err := fx.svc.Scan(ctx, ScanRequest{WebsiteURL: clinicURL, ClientSessionID: "s1"}, testClient)
	require.NoError(t, err)
	fx.fetcher.errs["https://down.com"] = errUnknownHost
	_, err = fx.svc.Scan(ctx, ScanRequest{WebsiteURL: "down.com", ClientSessionID: "s2"}, testClient)
	require.Error(t, err)

	assert.Contains(t, string(fx.svc.Badge(ctx, "s1")), fmt.Sprintf(`aria-label="Accessibility score %d"`, resp.Summary.Score()))
	assert.Contains(t, string(fx.svc.Badge(ctx, "s2")), `aria-label="Accessibility score ?"`)
	assert.Contains(t, string(fx.svc.Badge(ctx, "missing")), "Badge not found")
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "accessibility-report-clinic.com.pdf", reportFilename("https://www.clinic.com/about"))
	assert.Equal(t, "accessibility-report.pdf", reportFilename("::"))
}
