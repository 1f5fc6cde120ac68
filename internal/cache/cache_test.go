package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/store"
)

var errDBDown = errors.New("database is locked")

type fakeFinder struct {
	rec      *model.ScanRecord
	err      error
	gotSince time.Time
}

func (f *fakeFinder) LatestByURL(_ context.Context, _ string, since time.Time) (*model.ScanRecord, error) {
	f.gotSince = since
	return f.rec, f.err
}

var now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(f Finder) *Cache {
	c := New(f, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return now }
	return c
}

func TestCache_Hit(t *testing.T) {
	f := &fakeFinder{rec: &model.ScanRecord{SessionID: "s", HTTPStatus: 200}}

	rec := newTestCache(f).Lookup(context.Background(), "https://example.com")

	require.NotNil(t, rec)
	assert.Equal(t, "s", rec.SessionID)
	assert.Equal(t, now.Add(-time.Hour), f.gotSince)
}

func TestCache_Misses(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeFinder
	}{
		{name: "not found", f: &fakeFinder{err: store.ErrNotFound}},
		{name: "store error", f: &fakeFinder{err: errDBDown}},
		{name: "failed attempt", f: &fakeFinder{rec: &model.ScanRecord{SessionID: "s"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, newTestCache(tt.f).Lookup(context.Background(), "https://example.com"))
		})
	}
}

func TestCache_WithStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Insert(ctx, &model.ScanRecord{
		SessionID: "fresh", WebsiteURL: "https://example.com", ClientID: "c", HTTPStatus: 200, CreatedAt: time.Now(),
	}))

	c := New(s, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := c.Lookup(ctx, "https://example.com")
	require.NotNil(t, rec)
	assert.Equal(t, "fresh", rec.SessionID)
	assert.Nil(t, c.Lookup(ctx, "https://other.com"))
}
