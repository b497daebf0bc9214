// Package watcher filters a stream of events by type into a channel that never blocks the publisher.
package watcher

import (
	"reflect"

	"github.com/lotusmail/lotus/async"
	"github.com/lotusmail/lotus/internal/queue"
)

type Watcher[T any] struct {
	types   map[reflect.Type]struct{}
	eventCh *queue.QueuedChannel[T]
}

// New returns a watcher of the given event types. With no types it watches everything.
func New[T any](panicHandler async.PanicHandler, ofType ...T) *Watcher[T] {
	types := make(map[reflect.Type]struct{}, len(ofType))

	for _, t := range ofType {
		types[reflect.TypeOf(t)] = struct{}{}
	}

	return &Watcher[T]{
		types:   types,
		eventCh: queue.NewQueuedChannel[T](1, 1, panicHandler),
	}
}

func (w *Watcher[T]) IsWatching(event T) bool {
	if len(w.types) == 0 {
		return true
	}

	_, ok := w.types[reflect.TypeOf(event)]

	return ok
}

func (w *Watcher[T]) GetChannel() <-chan T {
	return w.eventCh.GetChannel()
}

// Send queues the event. It returns false once the watcher is closed.
func (w *Watcher[T]) Send(event T) bool {
	return w.eventCh.Enqueue(event)
}

// Close drops undelivered events and closes the channel.
func (w *Watcher[T]) Close() {
	w.eventCh.CloseAndDiscardQueued()
	w.eventCh.Wait()
}
