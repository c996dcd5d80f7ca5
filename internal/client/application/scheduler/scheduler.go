// Package scheduler runs a gateway read on a fixed cadence while a view is
// mounted and feeds the results back through the event loop.
//
// Start, Stop, Refresh and Active belong to the event loop, as do the result
// and error callbacks. Work itself runs on separate goroutines.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"cabconnect/internal/shared/logger"
)

// Poster is the part of eventloop.Loop the scheduler needs.
type Poster interface {
	Post(fn func()) bool
}

// Observer receives one event per poll outcome.
type Observer interface {
	Poll(scheduler, outcome string)
}

const (
	OutcomeStarted   = "started"
	OutcomeSkipped   = "skipped"
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

type Options struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single call. Zero means no bound.
	Timeout   time.Duration
	NewTicker TickerFactory
	Observer  Observer
	Logger    *logger.Logger
}

type Scheduler[T any] struct {
	loop     Poster
	op       func(ctx context.Context) (T, error)
	onResult func(T)
	onError  func(error)
	opts     Options

	current *activation
}

// activation is one Start..Stop span. Deliveries compare against the
// scheduler's current activation by pointer and are dropped on mismatch.
type activation struct {
	stop  chan struct{}
	busy  atomic.Bool
	again atomic.Bool
}

func New[T any](loop Poster, op func(ctx context.Context) (T, error), onResult func(T), onError func(error), opts Options) *Scheduler[T] {
	if opts.NewTicker == nil {
		opts.NewTicker = RealTicker
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Name == "" {
		opts.Name = "scheduler"
	}
	return &Scheduler[T]{loop: loop, op: op, onResult: onResult, onError: onError, opts: opts}
}

func (s *Scheduler[T]) Name() string { return s.opts.Name }

func (s *Scheduler[T]) Active() bool { return s.current != nil }

// Start fires the operation immediately and then on every tick. A second
// Start while active is a no-op.
func (s *Scheduler[T]) Start() {
	if s.current != nil {
		return
	}
	a := &activation{stop: make(chan struct{})}
	s.current = a
	t := s.opts.NewTicker(s.opts.Interval)

	s.opts.Logger.Debug(logger.Entry{
		Action:     "scheduler_started",
		Message:    s.opts.Name,
		Additional: map[string]any{"interval": s.opts.Interval.String()},
	})

	s.fire(a)
	go s.tick(a, t)
}

// Stop ends the activation. A call already in flight keeps running but its
// outcome is never delivered.
func (s *Scheduler[T]) Stop() {
	a := s.current
	if a == nil {
		return
	}
	s.current = nil
	close(a.stop)
	s.opts.Logger.Debug(logger.Entry{Action: "scheduler_stopped", Message: s.opts.Name})
}

// Refresh runs the operation now. If a call is pending, exactly one more
// call follows it.
func (s *Scheduler[T]) Refresh() {
	a := s.current
	if a == nil {
		return
	}
	if !a.busy.CompareAndSwap(false, true) {
		a.again.Store(true)
		return
	}
	s.observe(OutcomeStarted)
	go s.call(a)
}

func (s *Scheduler[T]) tick(a *activation, t Ticker) {
	defer t.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-t.C():
			select {
			case <-a.stop:
				return
			default:
			}
			s.fire(a)
		}
	}
}

func (s *Scheduler[T]) fire(a *activation) {
	if !a.busy.CompareAndSwap(false, true) {
		s.observe(OutcomeSkipped)
		return
	}
	s.observe(OutcomeStarted)
	go s.call(a)
}

func (s *Scheduler[T]) call(a *activation) {
	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	v, err := s.op(ctx)
	if !s.loop.Post(func() { s.deliver(a, v, err) }) {
		a.busy.Store(false)
	}
}

func (s *Scheduler[T]) deliver(a *activation, v T, err error) {
	a.busy.Store(false)
	if s.current != a {
		s.observe(OutcomeDiscarded)
		return
	}

	if err != nil {
		s.observe(OutcomeFailed)
		s.opts.Logger.Warn(logger.Entry{
			Action:     "scheduled_poll_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"scheduler": s.opts.Name},
		})
		if s.onError != nil {
			s.onError(err)
		}
	} else {
		s.observe(OutcomeDelivered)
		if s.onResult != nil {
			s.onResult(v)
		}
	}

	// callbacks may have stopped us
	if s.current == a && a.again.Swap(false) {
		s.fire(a)
	}
}

func (s *Scheduler[T]) observe(outcome string) {
	if s.opts.Observer != nil {
		s.opts.Observer.Poll(s.opts.Name, outcome)
	}
}
