package scheduler

import (
	"time"

	"github.com/warpdl/deadline/pkg/logger"
)

// DefaultIdleWait is how long the loop sleeps when no task is pending. It only
// bounds the idle timer; new commands wake the loop immediately.
const DefaultIdleWait = 24 * time.Hour

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	log      logger.Logger
	idleWait time.Duration
	spawn    func(func())
}

func defaultOptions() *options {
	return &options{
		log:      logger.NewNopLogger(),
		idleWait: DefaultIdleWait,
		spawn:    func(f func()) { go f() },
	}
}

// WithLogger sets the logger used by the engine goroutine.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithIdleWait overrides DefaultIdleWait. Non-positive values are ignored.
func WithIdleWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleWait = d
		}
	}
}

// WithSpawn sets how the engine goroutine is started. The default runs it
// with a plain go statement; embedders may hand it to their own supervisor.
func WithSpawn(spawn func(func())) Option {
	return func(o *options) {
		if spawn != nil {
			o.spawn = spawn
		}
	}
}
