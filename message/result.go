package message

import (
	"context"
	"sync"
)

// Result is the outcome of a fetch. It is resolved at most once, possibly long after the fetch was issued.
type Result struct {
	done chan struct{}
	once sync.Once

	messages []*Message
	err      error
}

func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// NewFailedResult returns a result already resolved with err.
func NewFailedResult(err error) *Result {
	res := NewResult()

	res.resolve(nil, err)

	return res
}

// Done is closed once the result is resolved.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Resolved reports whether the result is available.
func (r *Result) Resolved() bool {
	select {
	case <-r.done:
		return true

	default:
		return false
	}
}

// Wait blocks until the result is resolved or the context is done.
// Giving up on the wait does not cancel the fetch.
func (r *Result) Wait(ctx context.Context) ([]*Message, error) {
	select {
	case <-r.done:
		return r.messages, r.err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Result) resolve(messages []*Message, err error) {
	r.once.Do(func() {
		r.messages, r.err = messages, err
		close(r.done)
	})
}
