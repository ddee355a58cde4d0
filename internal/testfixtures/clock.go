package testfixtures

import (
	"sync"
	"time"
)

// Clock is a hand-driven time source. It only moves when a test moves it,
// which keeps session expiries and retention cutoffs exact.
type Clock struct {
	mu sync.Mutex
	at time.Time
}

// NewClock starts a clock at the given instant, or at ReferenceTime when the
// zero value is passed.
func NewClock(at time.Time) *Clock {
	if at.IsZero() {
		at = ReferenceTime()
	}
	return &Clock{at: at}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
	return c.at
}

// NowFunc adapts the clock to the `now func() time.Time` parameter the
// services take.
func (c *Clock) NowFunc() func() time.Time {
	return c.Now
}
