package scheduler

import "time"

// Ticker is the subset of *time.Ticker the scheduler uses, so tests can drive
// time by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
