// Package cadence enforces the per-vertical publication rate: at most a
// configured number of publications per weekly window. Reservation is a
// single atomic operation in the store, never a read-then-write pair.
package cadence

import (
	"context"
	"time"
)

// ReservationStore is the slice of the durable store the counter needs
type ReservationStore interface {
	TryReserveCadence(ctx context.Context, vertical string, windowStart time.Time, max int) (bool, error)
	CadenceUsed(ctx context.Context, vertical string, windowStart time.Time) (int, error)
}

// WeekStart returns the UTC Monday 00:00 boundary of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	// time.Weekday numbers Sunday 0; shift so Monday is day 0
	days := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -days)
}

// Counter tracks publication capacity per (vertical, week)
type Counter struct {
	store ReservationStore
	max   int
}

// NewCounter creates a counter with the configured weekly maximum
func NewCounter(store ReservationStore, maxPerWeek int) *Counter {
	return &Counter{store: store, max: maxPerWeek}
}

// Max returns the configured weekly maximum
func (c *Counter) Max() int {
	return c.max
}

// TryReserve consumes one publication slot for the vertical's current
// window. Returns false when the window is exhausted. Atomic: concurrent
// callers at the last slot see exactly one success.
func (c *Counter) TryReserve(ctx context.Context, vertical string, now time.Time) (bool, error) {
	return c.store.TryReserveCadence(ctx, vertical, WeekStart(now), c.max)
}

// Remaining returns the unreserved capacity in the vertical's current window.
func (c *Counter) Remaining(ctx context.Context, vertical string, now time.Time) (int, error) {
	used, err := c.store.CadenceUsed(ctx, vertical, WeekStart(now))
	if err != nil {
		return 0, err
	}
	remaining := c.max - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
