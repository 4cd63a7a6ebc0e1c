package tts

import (
	"context"
	"sync/atomic"
)

// Dispatcher delivers caller callbacks on the goroutine that owns the host's
// user interface.
type Dispatcher interface {
	Post(fn func())
}

// Immediate runs callbacks synchronously on the posting goroutine.
type Immediate struct{}

// Post implements Dispatcher.
func (Immediate) Post(fn func()) {
	if fn != nil {
		fn()
	}
}

// Loop is a Dispatcher backed by a single goroutine that runs posted
// callbacks one at a time, in order.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	stopped atomic.Bool
	onLoop  atomic.Bool
	started atomic.Bool
}

// NewLoop creates a loop that buffers up to size callbacks before Post
// blocks.
func NewLoop(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run executes callbacks until ctx is done. It must be called once, usually
// from the goroutine designated as the UI owner.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return nil
	}
	defer func() {
		l.stopped.Store(true)
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.onLoop.Store(true)
			fn()
			l.onLoop.Store(false)
		}
	}
}

// Post queues fn to run on the loop. Callbacks posted after the loop stopped
// are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil || l.stopped.Load() {
		return
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// OnLoop reports whether the loop is currently executing a callback. Called
// from inside a callback it is always true.
func (l *Loop) OnLoop() bool {
	return l.onLoop.Load()
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
