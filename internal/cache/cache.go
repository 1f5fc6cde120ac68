// Package cache answers repeat scans of the same site from a recent stored
// result.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/store"
)

// Finder looks up the newest successful record for a URL.
type Finder interface {
	LatestByURL(ctx context.Context, websiteURL string, since time.Time) (*model.ScanRecord, error)
}

// Cache is a read-through view over stored scan records.
type Cache struct {
	finder Finder
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Cache honouring records younger than ttl.
func New(finder Finder, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{finder: finder, ttl: ttl, logger: logger, now: time.Now}
}

// Lookup returns a cached record for websiteURL, or nil on a miss. Lookup
// errors are logged and treated as a miss.
func (c *Cache) Lookup(ctx context.Context, websiteURL string) *model.ScanRecord {
	rec, err := c.finder.LatestByURL(ctx, websiteURL, c.now().Add(-c.ttl))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.WarnContext(ctx, "cache lookup failed", "url", websiteURL, "error", err)
		}
		return nil
	}
	if rec.Failed() {
		return nil
	}
	return rec
}
