package geo

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached remembers successful lookups per teacher so QR regeneration
// does not hit the location service every time.
type Cached struct {
	inner Locator
	c     *cache.Cache
}

// NewCached wraps inner with a per-teacher cache of the given lifetime.
func NewCached(inner Locator, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{inner: inner, c: cache.New(ttl, 2*ttl)}
}

func (c *Cached) Locate(ctx context.Context, teacherID string) (Coordinates, error) {
	if v, ok := c.c.Get(teacherID); ok {
		return v.(Coordinates), nil
	}
	coords, err := c.inner.Locate(ctx, teacherID)
	if err != nil {
		return Coordinates{}, err
	}
	c.c.SetDefault(teacherID, coords)
	return coords, nil
}

// Remember stores a position reported by the teacher's own device.
func (c *Cached) Remember(teacherID string, coords Coordinates) {
	c.c.SetDefault(teacherID, coords)
}
