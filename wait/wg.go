package wait

import (
	"sync"

	"github.com/lotusmail/lotus/async"
)

// Group is a sync.WaitGroup whose goroutines report panics to a handler.
type Group struct {
	wg           sync.WaitGroup
	panicHandler async.PanicHandler
}

func NewGroup(panicHandler async.PanicHandler) *Group {
	return &Group{panicHandler: panicHandler}
}

func (wg *Group) Go(f func()) {
	wg.wg.Add(1)

	go func() {
		defer wg.wg.Done()
		defer async.HandlePanic(wg.panicHandler)

		f()
	}()
}

func (wg *Group) Wait() {
	wg.wg.Wait()
}
