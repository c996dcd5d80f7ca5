// Package eventloop runs closures one at a time on a single goroutine. The
// client uses it the way a browser uses its UI thread: session transitions,
// routing, view mounting and scheduler activation all happen here, so none of
// them needs its own locking.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"cabconnect/internal/shared/logger"
)

var ErrClosed = errors.New("event loop stopped")

type Loop struct {
	log *logger.Logger

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool

	done chan struct{}
}

func New(log *logger.Logger) *Loop {
	if log == nil {
		log = logger.Nop()
	}
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it. Calling it from the loop itself
// would deadlock.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// fn may have run right before shutdown
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled. Closures still queued at that
// point are dropped. Run must be called once.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return
			}
			l.run(fn)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error(logger.Entry{
				Action:  "event_loop_panic",
				Message: fmt.Sprint(r),
				Error:   &logger.ErrObj{Msg: fmt.Sprint(r), Stack: string(debug.Stack())},
			})
		}
	}()
	fn()
}
