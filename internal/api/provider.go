package api

import (
	"context"
	"time"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/notify"
	"github.com/Bahjat/comply-scanner/internal/quota"
	"github.com/Bahjat/comply-scanner/internal/scanner"
)

// Scanner runs the audit pipeline for one site.
type Scanner interface {
	Scan(ctx context.Context, rootURL string, start time.Time) (*scanner.Result, error)
}

// RecordStore persists scan records and unlock leads.
type RecordStore interface {
	Insert(ctx context.Context, rec *model.ScanRecord) error
	BySession(ctx context.Context, sessionID string) (*model.ScanRecord, error)
	Update(ctx context.Context, sessionID string, upd model.RecordUpdate) error
	UpsertWaitlist(ctx context.Context, email, websiteURL string) error
	Ping(ctx context.Context) error
}

// QuotaChecker admits a client's scan and holds its slot until release.
type QuotaChecker interface {
	Reserve(ctx context.Context, clientID string) (quota.Decision, func(), error)
}

// ResultCache returns a recent successful record for a URL, or nil.
type ResultCache interface {
	Lookup(ctx context.Context, websiteURL string) *model.ScanRecord
}

// ReportRenderer renders a record as a PDF document.
type ReportRenderer interface {
	Generate(rec *model.ScanRecord) ([]byte, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Scanner  Scanner
	Store    RecordStore
	Quota    QuotaChecker
	Cache    ResultCache
	Mailer   notify.Mailer
	Notifier notify.Notifier
	PDF      ReportRenderer
}
