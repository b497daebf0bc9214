// Package queue provides an unbounded FIFO whose items are read from a channel.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/lotusmail/lotus/async"
)

// QueuedChannel represents a channel on which queued items can be published without having to worry if the reader
// has actually consumed existing items first or if there's no way of knowing ahead of time what the ideal channel
// buffer size should be.
type QueuedChannel[T any] struct {
	ch     chan T
	stopCh chan struct{}
	items  []T
	cond   *sync.Cond
	closed atomic.Bool
	stop   sync.Once
	wg     sync.WaitGroup
}

func NewQueuedChannel[T any](chanBufferSize, queueCapacity int, panicHandler async.PanicHandler) *QueuedChannel[T] {
	queue := &QueuedChannel[T]{
		ch:     make(chan T, chanBufferSize),
		stopCh: make(chan struct{}),
		items:  make([]T, 0, queueCapacity),
		cond:   sync.NewCond(&sync.Mutex{}),
	}

	queue.wg.Add(1)

	go func() {
		defer queue.wg.Done()
		defer close(queue.ch)
		defer async.HandlePanic(panicHandler)

		for {
			item, ok := queue.pop()
			if !ok {
				return
			}

			select {
			case queue.ch <- item:

			case <-queue.stopCh:
				return
			}
		}
	}()

	return queue
}

// Enqueue appends items to the queue. It returns false if the queue is closed.
func (q *QueuedChannel[T]) Enqueue(items ...T) bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	if q.closed.Load() {
		return false
	}

	q.items = append(q.items, items...)

	q.cond.Broadcast()

	return true
}

func (q *QueuedChannel[T]) GetChannel() <-chan T {
	return q.ch
}

// Close stops accepting items. Items already queued are still delivered, then the channel is closed.
func (q *QueuedChannel[T]) Close() {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.closed.Store(true)

	q.cond.Broadcast()
}

// CloseAndDiscardQueued stops accepting items, drops the queued ones and closes the channel
// even if nobody is reading from it.
func (q *QueuedChannel[T]) CloseAndDiscardQueued() {
	q.cond.L.Lock()

	q.closed.Store(true)
	q.items = nil

	q.cond.Broadcast()
	q.cond.L.Unlock()

	q.stop.Do(func() { close(q.stopCh) })
}

// Wait blocks until the channel has been closed.
func (q *QueuedChannel[T]) Wait() {
	q.wg.Wait()
}

func (q *QueuedChannel[T]) pop() (T, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	var item T

	// Keep popping after Close so queued items are delivered, but never sleep on a closed, empty queue.
	for len(q.items) == 0 {
		if q.closed.Load() {
			return item, false
		}

		q.cond.Wait()
	}

	item, q.items = q.items[0], q.items[1:]

	return item, true
}
