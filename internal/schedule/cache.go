package schedule

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// SheetCache is the read side of the booking engine: one shared
// read-through cache of computed day sheets the dashboards and grids render
// from. It is invalidated by the store's change feed, with a short TTL as a
// safety net. The coordinator never reads through it; commits always re-read
// the store directly.
type SheetCache struct {
	grid  Grid
	store Store
	cache *gocache.Cache
	log   zerolog.Logger
}

func NewSheetCache(grid Grid, store Store, ttl time.Duration, log zerolog.Logger) *SheetCache {
	return &SheetCache{
		grid:  grid,
		store: store,
		cache: gocache.New(ttl, 2*ttl),
		log:   log.With().Str("component", "sheet_cache").Logger(),
	}
}

// DaySheet returns the dual-track availability grid for a date, computing
// and memoizing it on miss.
func (c *SheetCache) DaySheet(ctx context.Context, date string) ([]SlotCell, error) {
	if v, ok := c.cache.Get(date); ok {
		return v.([]SlotCell), nil
	}

	active, err := c.store.ActiveBookings(ctx, date)
	if err != nil {
		return nil, err
	}
	sheet := BuildDaySheet(c.grid, active)
	c.cache.Set(date, sheet, gocache.DefaultExpiration)
	return sheet, nil
}

// Invalidate drops one date's memoized sheet.
func (c *SheetCache) Invalidate(date string) {
	c.cache.Delete(date)
}

// Listen consumes the booking change feed until it closes, dropping each
// changed date from the cache. Run it on its own goroutine.
func (c *SheetCache) Listen(changes <-chan string) {
	for date := range changes {
		c.log.Debug().Str("date", date).Msg("invalidating day sheet")
		c.Invalidate(date)
	}
}
