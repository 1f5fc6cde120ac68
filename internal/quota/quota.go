// Package quota enforces the per-client hourly scan limit.
package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Bahjat/comply-scanner/internal/platform/errs"
)

const (
	// Window is the sliding period over which scans are counted.
	Window = time.Hour
	// RetryAfterSeconds is advertised to denied clients.
	RetryAfterSeconds = 3600
)

// Counter counts a client's stored scans since a point in time.
type Counter interface {
	CountByClient(ctx context.Context, clientID string, since time.Time) (int, error)
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
}

// Guard is a sliding-window limiter backed by the scan record store. Scans
// admitted but not yet stored are held as in-flight slots, so concurrent
// requests from one client cannot all pass on the same stored count.
type Guard struct {
	counter Counter
	limit   int
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]int
}

// NewGuard returns a Guard allowing limit scans per client per Window.
func NewGuard(counter Counter, limit int, logger *slog.Logger) *Guard {
	return &Guard{
		counter:  counter,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]int),
	}
}

// Reserve admits clientID if its stored scans in the window plus its
// in-flight scans are below the limit, and holds a slot until release is
// called. Callers release after the scan's record is stored. A denied client
// gets an errs.RateLimited error and a no-op release. Store failures count
// as zero stored scans.
func (g *Guard) Reserve(ctx context.Context, clientID string) (d Decision, release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.counter.CountByClient(ctx, clientID, g.now().Add(-Window))
	if err != nil {
		g.logger.WarnContext(ctx, "quota check failed, counting in-flight scans only", "client_id", clientID, "error", err)
		n = 0
	}
	n += g.inflight[clientID]

	if n >= g.limit {
		return Decision{Remaining: 0}, func() {}, &errs.AppError{
			Kind:       errs.RateLimited,
			RetryAfter: RetryAfterSeconds,
			Message:    "Rate limit exceeded. Please try again later.",
		}
	}

	g.inflight[clientID]++
	return Decision{Allowed: true, Remaining: g.limit - n - 1}, sync.OnceFunc(func() { g.done(clientID) }), nil
}

func (g *Guard) done(clientID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[clientID]--; g.inflight[clientID] <= 0 {
		delete(g.inflight, clientID)
	}
}

// InFlight returns the number of admitted scans clientID has not released.
func (g *Guard) InFlight(clientID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[clientID]
}
