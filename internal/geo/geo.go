// Package geo resolves the teacher's coordinates for session QR payloads.
package geo

import (
	"context"
	"log"
	"time"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locator resolves the current position of a teacher.
type Locator interface {
	Locate(ctx context.Context, teacherID string) (Coordinates, error)
}

// Rememberer is implemented by locators that can keep a position reported by
// the teacher's own device.
type Rememberer interface {
	Remember(teacherID string, coords Coordinates)
}

// Fixed always reports the same coordinates.
type Fixed Coordinates

func (f Fixed) Locate(context.Context, string) (Coordinates, error) {
	return Coordinates(f), nil
}

// Fallback wraps a locator with a bounded wait and a default position.
type Fallback struct {
	Locator    Locator
	Default    Coordinates
	Timeout    time.Duration
	OnFallback func(teacherID string, err error)
}

// WithFallback returns a Fallback locator. A nil inner locator always yields def.
func WithFallback(inner Locator, def Coordinates, timeout time.Duration) *Fallback {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fallback{Locator: inner, Default: def, Timeout: timeout}
}

// Locate never fails: errors and timeouts resolve to the default position.
func (f *Fallback) Locate(ctx context.Context, teacherID string) (Coordinates, error) {
	if f.Locator == nil {
		f.fallback(teacherID, nil)
		return f.Default, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	type result struct {
		c   Coordinates
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := f.Locator.Locate(ctx, teacherID)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			f.fallback(teacherID, r.err)
			return f.Default, nil
		}
		return r.c, nil
	case <-ctx.Done():
		f.fallback(teacherID, ctx.Err())
		return f.Default, nil
	}
}

// Remember passes the position on to the wrapped locator when it keeps positions.
func (f *Fallback) Remember(teacherID string, coords Coordinates) {
	if r, ok := f.Locator.(Rememberer); ok {
		r.Remember(teacherID, coords)
	}
}

func (f *Fallback) fallback(teacherID string, err error) {
	if err != nil {
		log.Printf("location unavailable for %s, using default: %v", teacherID, err)
	}
	if f.OnFallback != nil {
		f.OnFallback(teacherID, err)
	}
}
