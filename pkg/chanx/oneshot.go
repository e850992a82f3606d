package chanx

import (
	"context"
	"sync"
)

// Oneshot carries exactly one value from a sender to a receiver.
//
// The sender either calls Send once or drops the channel with Close; a
// receiver blocked in Recv observes ErrCanceled in the latter case.
type Oneshot[T any] struct {
	ch   chan T
	once sync.Once
	mu   sync.Mutex
	sent bool
	gone bool
}

// NewOneshot creates an empty Oneshot.
func NewOneshot[T any]() *Oneshot[T] {
	return &Oneshot[T]{ch: make(chan T, 1)}
}

// Send delivers v. It never blocks. A second Send, or a Send after Close,
// returns ErrAlreadySent or ErrClosed respectively. If the receiver already
// stopped waiting, ErrNoReceiver is returned and the value is discarded.
func (o *Oneshot[T]) Send(v T) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sent {
		return ErrAlreadySent
	}
	if o.gone {
		o.once.Do(func() { close(o.ch) })
		return ErrNoReceiver
	}
	sent := false
	o.once.Do(func() {
		o.ch <- v
		close(o.ch)
		sent = true
	})
	if !sent {
		return ErrClosed
	}
	o.sent = true
	return nil
}

// Close drops the sender without a value. It is a no-op after Send.
func (o *Oneshot[T]) Close() {
	o.once.Do(func() { close(o.ch) })
}

// Recv waits for the value. It returns ErrCanceled if the sender was dropped
// and ctx.Err() if ctx ends first.
func (o *Oneshot[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-o.ch:
		if !ok {
			return zero, ErrCanceled
		}
		return v, nil
	case <-ctx.Done():
		o.mu.Lock()
		o.gone = true
		o.mu.Unlock()
		return zero, ctx.Err()
	}
}
