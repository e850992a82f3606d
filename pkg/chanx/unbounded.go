package chanx

import (
	"sync"

	"github.com/eapache/queue"
)

// Unbounded is a multi-producer/single-consumer channel without a capacity
// limit. Values sent with Send are buffered in a ring queue by a pump
// goroutine and delivered in order on Out.
//
// Closing the channel rejects further sends. Values already accepted are
// still delivered; Out is closed once they are drained.
type Unbounded[T any] struct {
	in  chan T
	out chan T

	mu     sync.RWMutex
	closed bool
}

// NewUnbounded creates an Unbounded channel and starts its pump goroutine.
func NewUnbounded[T any]() *Unbounded[T] {
	u := &Unbounded[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go u.pump()
	return u
}

// Send enqueues v. It only waits for the pump to take the value, never for
// the consumer. Returns ErrClosed after Close.
func (u *Unbounded[T]) Send(v T) error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.closed {
		return ErrClosed
	}
	u.in <- v
	return nil
}

// Out returns the receive side. It is closed after Close once every buffered
// value has been received.
func (u *Unbounded[T]) Out() <-chan T {
	return u.out
}

// Close stops accepting values. Safe to call multiple times.
func (u *Unbounded[T]) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.closed = true
	close(u.in)
}

// Closed reports whether Close has been called.
func (u *Unbounded[T]) Closed() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.closed
}

func (u *Unbounded[T]) pump() {
	buf := queue.New()
	defer close(u.out)

	in := u.in
	for in != nil || buf.Length() > 0 {
		if buf.Length() == 0 {
			v, ok := <-in
			if !ok {
				return
			}
			buf.Add(v)
			continue
		}
		select {
		case v, ok := <-in:
			if !ok {
				// drain what was accepted before Close
				in = nil
				continue
			}
			buf.Add(v)
		case u.out <- buf.Peek().(T):
			buf.Remove()
		}
	}
}
