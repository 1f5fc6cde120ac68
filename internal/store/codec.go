package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bahjat/comply-scanner/internal/model"
)

func toRow(rec *model.ScanRecord) (row, error) {
	r := row{
		ID:             rec.ID,
		SessionID:      rec.SessionID,
		WebsiteURL:     rec.WebsiteURL,
		ClientID:       rec.ClientID,
		HTTPStatus:     rec.HTTPStatus,
		ScanDurationMS: rec.ScanDuration.Milliseconds(),
		PagesScanned:   rec.PagesScanned,
		OverallScore:   rec.OverallScore,
		UserID:         nullString(rec.UserID),
		Email:          nullString(rec.Email),
		CreatedAt:      rec.CreatedAt.UnixMilli(),
	}
	r.EmailCapturedAt = nullMillis(rec.EmailCapturedAt)
	r.ReportSentAt = nullMillis(rec.ReportSentAt)

	fields := []struct {
		dst *string
		v   any
	}{
		{&r.Findings, nonNil(rec.Findings)},
		{&r.Summary, rec.Summary},
		{&r.PageResults, nonNil(rec.PageResults)},
		{&r.PdfResults, nonNil(rec.PdfResults)},
		{&r.VendorWarnings, nonNil(rec.VendorWarnings)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return row{}, fmt.Errorf("encoding scan record: %w", err)
		}
		*f.dst = string(b)
	}
	return r, nil
}

func fromRow(r row) (*model.ScanRecord, error) {
	rec := &model.ScanRecord{
		ID:           r.ID,
		SessionID:    r.SessionID,
		WebsiteURL:   r.WebsiteURL,
		ClientID:     r.ClientID,
		HTTPStatus:   r.HTTPStatus,
		ScanDuration: time.Duration(r.ScanDurationMS) * time.Millisecond,
		PagesScanned: r.PagesScanned,
		OverallScore: r.OverallScore,
		UserID:       r.UserID.String,
		Email:        r.Email.String,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
	rec.EmailCapturedAt = timeFromMillis(r.EmailCapturedAt)
	rec.ReportSentAt = timeFromMillis(r.ReportSentAt)

	fields := []struct {
		src string
		dst any
	}{
		{r.Findings, &rec.Findings},
		{r.Summary, &rec.Summary},
		{r.PageResults, &rec.PageResults},
		{r.PdfResults, &rec.PdfResults},
		{r.VendorWarnings, &rec.VendorWarnings},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decoding scan record %s: %w", r.SessionID, err)
		}
	}
	return rec, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
