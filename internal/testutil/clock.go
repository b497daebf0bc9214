// Package testutil holds fakes shared by the tests of several packages.
package testutil

import (
	"sync"
	"time"
)

// StubClock returns a time that only moves when told to. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2023-09-10 20:54:10 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2023, time.September, 10, 20, 54, 10, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
