// Package store persists scan records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/Bahjat/comply-scanner/internal/model"
)

// Sentinel errors returned by Store methods.
var (
	ErrNotFound  = errors.New("scan record not found")
	ErrDuplicate = errors.New("scan record already exists")
)

const table = "scan_results"

const schema = `
CREATE TABLE IF NOT EXISTS scan_results (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL UNIQUE,
	website_url       TEXT NOT NULL,
	client_id         TEXT NOT NULL,
	http_status       INTEGER NOT NULL,
	scan_duration_ms  INTEGER NOT NULL,
	findings          TEXT NOT NULL,
	summary           TEXT NOT NULL,
	page_results      TEXT NOT NULL,
	pages_scanned     INTEGER NOT NULL,
	pdf_results       TEXT NOT NULL,
	vendor_warnings   TEXT NOT NULL,
	overall_score     INTEGER NOT NULL,
	user_id           TEXT,
	email             TEXT,
	created_at        INTEGER NOT NULL,
	email_captured_at INTEGER,
	report_sent_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_scan_results_url_created ON scan_results (website_url, created_at);
CREATE INDEX IF NOT EXISTS idx_scan_results_client_created ON scan_results (client_id, created_at);
CREATE TABLE IF NOT EXISTS waitlist (
	email       TEXT PRIMARY KEY,
	website_url TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

var columns = []string{
	"id", "session_id", "website_url", "client_id", "http_status", "scan_duration_ms",
	"findings", "summary", "page_results", "pages_scanned", "pdf_results", "vendor_warnings",
	"overall_score", "user_id", "email", "created_at", "email_captured_at", "report_sent_at",
}

// row mirrors the table layout.
type row struct {
	ID              string         `db:"id"`
	SessionID       string         `db:"session_id"`
	WebsiteURL      string         `db:"website_url"`
	ClientID        string         `db:"client_id"`
	HTTPStatus      int            `db:"http_status"`
	ScanDurationMS  int64          `db:"scan_duration_ms"`
	Findings        string         `db:"findings"`
	Summary         string         `db:"summary"`
	PageResults     string         `db:"page_results"`
	PagesScanned    int            `db:"pages_scanned"`
	PdfResults      string         `db:"pdf_results"`
	VendorWarnings  string         `db:"vendor_warnings"`
	OverallScore    int            `db:"overall_score"`
	UserID          sql.NullString `db:"user_id"`
	Email           sql.NullString `db:"email"`
	CreatedAt       int64          `db:"created_at"`
	EmailCapturedAt sql.NullInt64  `db:"email_captured_at"`
	ReportSentAt    sql.NullInt64  `db:"report_sent_at"`
}

// Store is a scan record repository. It is safe for concurrent use.
type Store struct {
	db *sqlx.DB
	qb squirrel.StatementBuilderType
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{
		db: db,
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert stores a new record, assigning ID and CreatedAt when unset. A record
// whose session id already exists yields ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec *model.ScanRecord) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	r, err := toRow(rec)
	if err != nil {
		return err
	}

	query, args, err := s.qb.Insert(table).Columns(columns...).Values(
		r.ID, r.SessionID, r.WebsiteURL, r.ClientID, r.HTTPStatus, r.ScanDurationMS,
		r.Findings, r.Summary, r.PageResults, r.PagesScanned, r.PdfResults, r.VendorWarnings,
		r.OverallScore, r.UserID, r.Email, r.CreatedAt, r.EmailCapturedAt, r.ReportSentAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", rec.SessionID, ErrDuplicate)
		}
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

// CountByClient counts records created for clientID at or after since.
func (s *Store) CountByClient(ctx context.Context, clientID string, since time.Time) (int, error) {
	query, args, err := s.qb.Select("COUNT(*)").From(table).
		Where(squirrel.Eq{"client_id": clientID}).
		Where(squirrel.GtOrEq{"created_at": since.UnixMilli()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count scans by client: %w", err)
	}
	return n, nil
}

// LatestByURL returns the newest successful record for websiteURL created at
// or after since. Failed-attempt records are ignored.
func (s *Store) LatestByURL(ctx context.Context, websiteURL string, since time.Time) (*model.ScanRecord, error) {
	return s.getOne(ctx, s.qb.Select(columns...).From(table).
		Where(squirrel.Eq{"website_url": websiteURL}).
		Where(squirrel.GtOrEq{"created_at": since.UnixMilli()}).
		Where(squirrel.NotEq{"http_status": 0}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1))
}

// BySession returns the record for sessionID.
func (s *Store) BySession(ctx context.Context, sessionID string) (*model.ScanRecord, error) {
	return s.getOne(ctx, s.qb.Select(columns...).From(table).
		Where(squirrel.Eq{"session_id": sessionID}))
}

// Update applies the non-nil fields of upd to the record for sessionID.
func (s *Store) Update(ctx context.Context, sessionID string, upd model.RecordUpdate) error {
	q := s.qb.Update(table).Where(squirrel.Eq{"session_id": sessionID})
	changed := false
	if upd.Email != nil {
		q = q.Set("email", *upd.Email)
		changed = true
	}
	if upd.EmailCapturedAt != nil {
		q = q.Set("email_captured_at", upd.EmailCapturedAt.UnixMilli())
		changed = true
	}
	if upd.ReportSentAt != nil {
		q = q.Set("report_sent_at", upd.ReportSentAt.UnixMilli())
		changed = true
	}
	if !changed {
		return nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update scan record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scan record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertWaitlist records email as a lead for websiteURL, replacing the site
// of an existing entry. An empty websiteURL keeps the site already stored.
func (s *Store) UpsertWaitlist(ctx context.Context, email, websiteURL string) error {
	query, args, err := s.qb.Insert("waitlist").
		Columns("email", "website_url", "created_at").
		Values(email, websiteURL, time.Now().UTC().UnixMilli()).
		Suffix("ON CONFLICT(email) DO UPDATE SET website_url = " +
			"CASE WHEN excluded.website_url = '' THEN waitlist.website_url ELSE excluded.website_url END").
		ToSql()
	if err != nil {
		return fmt.Errorf("build waitlist upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert waitlist: %w", err)
	}
	return nil
}

// WaitlistSite returns the site recorded for email.
func (s *Store) WaitlistSite(ctx context.Context, email string) (string, error) {
	query, args, err := s.qb.Select("website_url").From("waitlist").
		Where(squirrel.Eq{"email": email}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}
	var site string
	if err := s.db.GetContext(ctx, &site, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get waitlist entry: %w", err)
	}
	return site, nil
}

func (s *Store) getOne(ctx context.Context, b squirrel.SelectBuilder) (*model.ScanRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var r row
	if err := s.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scan record: %w", err)
	}
	return fromRow(r)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}
