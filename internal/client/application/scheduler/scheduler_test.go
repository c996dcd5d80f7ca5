package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabconnect/internal/client/testutil"
	"cabconnect/internal/shared/eventloop"
)

const wait = 2 * time.Second
const poll = 5 * time.Millisecond

// fakeClock drives every ticker it created from Advance.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	tickers []*fakeTicker
}

type fakeTicker struct {
	c      chan time.Time
	period time.Duration
	next   time.Duration
	dead   atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.dead.Store(true) }

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time, 1), period: d, next: c.now + d}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	for _, t := range c.tickers {
		for !t.dead.Load() && t.next <= c.now {
			select {
			case t.c <- time.Unix(0, 0).Add(t.next):
			default:
			}
			t.next += t.period
		}
	}
}

type counter struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *counter) Poll(name, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]int{}
	}
	c.n[name+"/"+outcome]++
}

func (c *counter) get(name, outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[name+"/"+outcome]
}

func onLoop(t *testing.T, l *eventloop.Loop, fn func()) { testutil.OnLoop(t, l, fn) }

func TestStartFiresImmediately(t *testing.T) {
	loop := testutil.StartLoop(t)
	clock := &fakeClock{}
	got := make(chan int, 4)
	s := New(loop, func(context.Context) (int, error) { return 7, nil },
		func(v int) { got <- v }, nil,
		Options{Name: "stats", Interval: time.Hour, NewTicker: clock.NewTicker})

	onLoop(t, loop, s.Start)
	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(wait):
		t.Fatal("no immediate call on Start")
	}
	onLoop(t, loop, func() { assert.True(t, s.Active()) })
	onLoop(t, loop, s.Stop)
	onLoop(t, loop, func() { assert.False(t, s.Active()) })
}

func TestIndependentCadences(t *testing.T) {
	loop := testutil.StartLoop(t)
	clock := &fakeClock{}
	obs := &counter{}
	var fast, slow atomic.Int32

	a := New(loop, func(context.Context) (struct{}, error) { return struct{}{}, nil },
		func(struct{}) { fast.Add(1) }, nil,
		Options{Name: "fast", Interval: 10 * time.Second, NewTicker: clock.NewTicker, Observer: obs})
	b := New(loop, func(context.Context) (struct{}, error) { return struct{}{}, nil },
		func(struct{}) { slow.Add(1) }, nil,
		Options{Name: "slow", Interval: 30 * time.Second, NewTicker: clock.NewTicker, Observer: obs})

	onLoop(t, loop, func() { a.Start(); b.Start() })
	require.Eventually(t, func() bool { return fast.Load() == 1 && slow.Load() == 1 }, wait, poll)

	for step := 1; step <= 6; step++ {
		clock.Advance(10 * time.Second)
		wantFast, wantSlow := int32(1+step), int32(1+step/3)
		require.Eventually(t, func() bool {
			return fast.Load() == wantFast && slow.Load() == wantSlow
		}, wait, poll, "after %ds", step*10)
	}

	assert.Equal(t, 7, obs.get("fast", OutcomeStarted))
	assert.Equal(t, 3, obs.get("slow", OutcomeStarted))
	assert.Zero(t, obs.get("fast", OutcomeSkipped))
	onLoop(t, loop, func() { a.Stop(); b.Stop() })
}

func TestErrorsDoNotStopSchedule(t *testing.T) {
	loop := testutil.StartLoop(t)
	clock := &fakeClock{}
	obs := &counter{}
	var calls atomic.Int32
	var failures atomic.Int32

	s := New(loop, func(context.Context) (int, error) {
		if calls.Add(1)%2 == 1 {
			return 0, errors.New("gateway down")
		}
		return 1, nil
	}, func(int) {}, func(error) { failures.Add(1) },
		Options{Name: "rides", Interval: time.Second, NewTicker: clock.NewTicker, Observer: obs})

	settled := func() int { return obs.get("rides", OutcomeDelivered) + obs.get("rides", OutcomeFailed) }
	onLoop(t, loop, s.Start)
	for i := 1; i <= 4; i++ {
		require.Eventually(t, func() bool { return settled() == i }, wait, poll)
		clock.Advance(time.Second)
	}
	require.Eventually(t, func() bool { return calls.Load() == 5 }, wait, poll)
	require.Eventually(t, func() bool { return failures.Load() == 3 }, wait, poll)
	onLoop(t, loop, func() { assert.True(t, s.Active()) })
	onLoop(t, loop, s.Stop)
}

func TestTickWhileBusyIsSkipped(t *testing.T) {
	loop := testutil.StartLoop(t)
	clock := &fakeClock{}
	obs := &counter{}
	release := make(chan struct{})
	var calls atomic.Int32

	s := New(loop, func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 0, nil
	}, nil, nil, Options{Name: "busy", Interval: time.Second, NewTicker: clock.NewTicker, Observer: obs})

	onLoop(t, loop, s.Start)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, wait, poll)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return obs.get("busy", OutcomeSkipped) == 1 }, wait, poll)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return obs.get("busy", OutcomeSkipped) == 2 }, wait, poll)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	require.Eventually(t, func() bool { return obs.get("busy", OutcomeDelivered) == 1 }, wait, poll)
	onLoop(t, loop, s.Stop)
}

func TestRefreshWhileBusyQueuesOneFollowUp(t *testing.T) {
	loop := testutil.StartLoop(t)
	clock := &fakeClock{}
	obs := &counter{}
	release := make(chan struct{}, 8)
	var calls atomic.Int32

	s := New(loop, func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 0, nil
	}, nil, nil, Options{Name: "refresh", Interval: time.Hour, NewTicker: clock.NewTicker, Observer: obs})

	onLoop(t, loop, s.Start)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, wait, poll)
	onLoop(t, loop, func() { s.Refresh(); s.Refresh(); s.Refresh() })

	release <- struct{}{}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, wait, poll)
	release <- struct{}{}
	require.Eventually(t, func() bool { return obs.get("refresh", OutcomeDelivered) == 2 }, wait, poll)

	testutil.Sync(t, loop)
	assert.Equal(t, int32(2), calls.Load())
	onLoop(t, loop, s.Stop)
}

func TestInFlightResultAfterStopIsDiscarded(t *testing.T) {
	loop := testutil.StartLoop(t)
	obs := &counter{}
	release := make(chan struct{})
	var delivered, failed atomic.Int32

	s := New(loop, func(ctx context.Context) (int, error) {
		<-release
		return 1, ctx.Err()
	}, func(int) { delivered.Add(1) }, func(error) { failed.Add(1) },
		Options{Name: "stale", Interval: time.Hour, NewTicker: (&fakeClock{}).NewTicker, Observer: obs})

	onLoop(t, loop, s.Start)
	onLoop(t, loop, s.Stop)
	close(release)

	require.Eventually(t, func() bool { return obs.get("stale", OutcomeDiscarded) == 1 }, wait, poll)
	assert.Zero(t, delivered.Load())
	assert.Zero(t, failed.Load())
}

// Random interleavings of Start, Stop, Refresh and call completion. Every
// delivered value must come from a call fired in the activation that is
// current at delivery time.
func TestNoDeliveryOutsideOwningActivation(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run("", func(t *testing.T) {
			runInterleaving(t, rand.New(rand.NewSource(seed)))
		})
	}
}

type pendingCall struct {
	epoch   int64
	release chan error
}

func runInterleaving(t *testing.T, rng *rand.Rand) {
	loop := testutil.StartLoop(t)
	obs := &counter{}

	var epoch atomic.Int64 // bumped on every Start, read by calls when they begin
	var registered atomic.Int32
	calls := make(chan *pendingCall, 256)
	var violations atomic.Int32
	active := false

	s := New(loop, func(context.Context) (int64, error) {
		pc := &pendingCall{epoch: epoch.Load(), release: make(chan error, 1)}
		registered.Add(1)
		calls <- pc
		return pc.epoch, <-pc.release
	}, func(v int64) {
		if !active || v != epoch.Load() {
			violations.Add(1)
		}
	}, func(error) {
		if !active {
			violations.Add(1)
		}
	}, Options{Name: "prop", Interval: time.Hour, NewTicker: (&fakeClock{}).NewTicker, Observer: obs})

	var pending []*pendingCall
	settled := func() int {
		return obs.get("prop", OutcomeDelivered) + obs.get("prop", OutcomeFailed) + obs.get("prop", OutcomeDiscarded)
	}
	drainRegistered := func() {
		require.Eventually(t, func() bool {
			return int(registered.Load()) == obs.get("prop", OutcomeStarted)
		}, wait, time.Millisecond)
		for {
			select {
			case pc := <-calls:
				pending = append(pending, pc)
			default:
				return
			}
		}
	}

	for step := 0; step < 60; step++ {
		switch rng.Intn(4) {
		case 0:
			onLoop(t, loop, func() {
				if !s.Active() {
					epoch.Add(1)
				}
				s.Start()
				active = true
			})
		case 1:
			onLoop(t, loop, func() { s.Stop(); active = false })
		case 2:
			onLoop(t, loop, s.Refresh)
		case 3:
			if len(pending) == 0 {
				continue
			}
			i := rng.Intn(len(pending))
			pc := pending[i]
			pending = append(pending[:i], pending[i+1:]...)
			before := settled()
			if rng.Intn(3) == 0 {
				pc.release <- errors.New("boom")
			} else {
				pc.release <- nil
			}
			require.Eventually(t, func() bool { return settled() == before+1 }, wait, time.Millisecond)
		}
		drainRegistered()
	}

	onLoop(t, loop, func() { s.Stop(); active = false })
	for _, pc := range pending {
		pc.release <- nil
	}
	require.Eventually(t, func() bool {
		return settled() == obs.get("prop", OutcomeStarted)
	}, wait, time.Millisecond)
	assert.Zero(t, violations.Load())
}
