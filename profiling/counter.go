package profiling

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Counter is a Profiler that records how many requests of each type completed and how long they took.
// Concurrent requests of the same type are timed first in, first out.
type Counter struct {
	lock    sync.Mutex
	now     func() time.Time
	started [RequestTypeTotal][]time.Time
	count   [RequestTypeTotal]int
	total   [RequestTypeTotal]time.Duration
}

func NewCounter(now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}

	return &Counter{now: now}
}

func (c *Counter) Start(reqType int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.started[reqType] = append(c.started[reqType], c.now())
}

func (c *Counter) Stop(reqType int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(c.started[reqType]) == 0 {
		return
	}

	start := c.started[reqType][0]
	c.started[reqType] = c.started[reqType][1:]

	c.count[reqType]++
	c.total[reqType] += c.now().Sub(start)
}

// Count returns how many requests of the type completed and their total duration.
func (c *Counter) Count(reqType int) (int, time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.count[reqType], c.total[reqType]
}

// Write prints one line per request type.
func (c *Counter) Write(w io.Writer) error {
	for reqType := 0; reqType < RequestTypeTotal; reqType++ {
		count, total := c.Count(reqType)

		var avg time.Duration

		if count > 0 {
			avg = total / time.Duration(count)
		}

		if _, err := fmt.Fprintf(w, "%v: %4d requests, avg %v\n", RequestTypeToString(reqType), count, avg); err != nil {
			return err
		}
	}

	return nil
}

// CounterBuilder gives every connection the same Counter.
type CounterBuilder struct {
	Counter *Counter
}

func (b *CounterBuilder) New() Profiler {
	return b.Counter
}

func (b *CounterBuilder) Collect(Profiler) {}
