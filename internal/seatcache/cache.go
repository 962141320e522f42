// Package seatcache keeps per-showtime seat occupancy snapshots for one
// checkout session.
//
// Entries are never time-invalidated while the session is alive: they are
// replaced by a newer Load, dropped by Invalidate, or expired by the backing
// store together with the session. A showtime without an entry reads as all
// seats available, which is optimistic and can be stale; callers reload right
// before submitting a booking.
package seatcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/metrics"
)

type Store interface {
	Get(ctx context.Context, showtimeID string) (domain.SeatMap, bool, error)
	Put(ctx context.Context, seatMap domain.SeatMap) error
	Invalidate(ctx context.Context, showtimeID string) error
}

type Cache struct {
	layouts domain.SeatLayoutProvider
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	next   uint64
	issued map[string]uint64
	// writers serialise the ticket check and the store write per showtime
	writers map[string]*sync.Mutex
}

type Option func(*Cache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(layouts domain.SeatLayoutProvider, store Store, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		layouts: layouts,
		store:   store,
		logger:  logger,
		now:     time.Now,
		issued:  make(map[string]uint64),
		writers: make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Load fetches the occupancy of a showtime and stores it. A failed fetch keeps
// the previous entry. When a newer Load of the same showtime was issued while
// this one was in flight, the result is returned with ErrSuperseded and not
// stored.
func (c *Cache) Load(ctx context.Context, showtime domain.Showtime) (domain.SeatMap, error) {
	showtimeID := showtime.ID
	ticket := c.issue(showtimeID)

	layout, err := c.layouts.GetSeatLayout(ctx, showtime)
	if err != nil {
		c.metrics.SeatLayoutLoaded("failed")
		c.logger.Warn("seat layout fetch failed, keeping previous snapshot", "showtime_id", showtimeID, "error", err)

		return domain.SeatMap{}, fmt.Errorf("%w: %w", domain.ErrAvailabilityFetchFailed, err)
	}

	seatMap := domain.NewSeatMap(showtimeID, *layout, c.now())

	unlock := c.lockWriter(showtimeID)
	defer unlock()

	if !c.isLatest(showtimeID, ticket) {
		c.metrics.SeatLayoutLoaded("stale")
		c.logger.Debug("discarding stale seat layout", "showtime_id", showtimeID)

		return seatMap, domain.ErrSuperseded
	}

	err = c.store.Put(ctx, seatMap)
	if err != nil {
		c.metrics.SeatLayoutLoaded("failed")
		return seatMap, fmt.Errorf("%w: failed to store snapshot: %w", domain.ErrAvailabilityFetchFailed, err)
	}

	c.metrics.SeatLayoutLoaded("ok")

	return seatMap, nil
}

// Get returns the cached state of a seat, or available when the showtime has
// no snapshot yet.
func (c *Cache) Get(ctx context.Context, showtimeID, seatID string) domain.SeatState {
	seatMap, ok := c.Snapshot(ctx, showtimeID)
	if !ok {
		return domain.SeatAvailable
	}

	return seatMap.State(seatID)
}

// Snapshot returns the cached map of a showtime. Store errors are logged and
// reported as a miss.
func (c *Cache) Snapshot(ctx context.Context, showtimeID string) (domain.SeatMap, bool) {
	seatMap, ok, err := c.store.Get(ctx, showtimeID)
	if err != nil {
		c.logger.Warn("seat cache read failed, assuming all seats available", "showtime_id", showtimeID, "error", err)
		return domain.SeatMap{}, false
	}

	return seatMap, ok
}

func (c *Cache) Has(ctx context.Context, showtimeID string) bool {
	_, ok := c.Snapshot(ctx, showtimeID)
	return ok
}

func (c *Cache) Put(ctx context.Context, seatMap domain.SeatMap) error {
	unlock := c.lockWriter(seatMap.ShowtimeID)
	defer unlock()

	c.issue(seatMap.ShowtimeID)

	return c.store.Put(ctx, seatMap)
}

func (c *Cache) Invalidate(ctx context.Context, showtimeID string) error {
	unlock := c.lockWriter(showtimeID)
	defer unlock()

	c.issue(showtimeID)

	return c.store.Invalidate(ctx, showtimeID)
}

func (c *Cache) lockWriter(showtimeID string) func() {
	c.mu.Lock()
	w, ok := c.writers[showtimeID]
	if !ok {
		w = new(sync.Mutex)
		c.writers[showtimeID] = w
	}
	c.mu.Unlock()

	w.Lock()

	return w.Unlock
}

func (c *Cache) issue(showtimeID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	c.issued[showtimeID] = c.next

	return c.next
}

func (c *Cache) isLatest(showtimeID string, ticket uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.issued[showtimeID] == ticket
}
