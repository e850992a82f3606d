package chanx

import "errors"

var (
	// ErrClosed is returned by Send when the channel has been closed.
	ErrClosed = errors.New("channel closed")

	// ErrCanceled is returned by Oneshot.Recv when the sender was dropped
	// without sending a value.
	ErrCanceled = errors.New("oneshot canceled")

	// ErrAlreadySent is returned by Oneshot.Send on the second call.
	ErrAlreadySent = errors.New("oneshot value already sent")

	// ErrNoReceiver is returned by Oneshot.Send when the receiver gave up
	// waiting before the value arrived.
	ErrNoReceiver = errors.New("oneshot receiver gone")
)
