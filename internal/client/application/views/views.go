// Package views holds the controllers the router mounts for each path. A view
// owns its schedulers and caches; mounting starts them and unmounting stops
// them. Mount and Unmount run on the event loop. Action methods (Cancel,
// Accept, Login...) block on the network and must be called off the loop.
package views

import (
	"context"
	"time"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/application/session"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"
)

type View interface {
	Mount()
	Unmount()
}

type Loop interface {
	Post(fn func()) bool
	Call(ctx context.Context, fn func()) error
}

// Sessions is what views need from the session store.
type Sessions interface {
	State() domain.SessionState
	Current() (domain.Session, bool)
	Subscribe(fn session.Listener) func()
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Register(ctx context.Context, r domain.Registration) (string, error)
	Logout(ctx context.Context) error
}

type Deps struct {
	Loop     Loop
	Sessions Sessions
	Gateway  out.Gateway
	Notifier out.Notifier
	Log      *logger.Logger

	Sync config.SyncConfig
	// CallTimeout bounds each scheduled gateway call.
	CallTimeout time.Duration
	NewTicker   scheduler.TickerFactory
	Observer    scheduler.Observer
	// Feed is optional.
	Feed in.RideEvents

	QuoteRide        in.QuoteRideUseCase
	BookRide         in.BookRideUseCase
	CancelRide       in.CancelRideUseCase
	AcceptRide       in.AcceptRideUseCase
	UpdateRideStatus in.UpdateRideStatusUseCase
	SetAvailability  in.SetAvailabilityUseCase
}

func (d Deps) schedOptions(name string, interval time.Duration) scheduler.Options {
	return scheduler.Options{
		Name:      name,
		Interval:  interval,
		Timeout:   d.CallTimeout,
		NewTicker: d.NewTicker,
		Observer:  d.Observer,
		Logger:    d.Log,
	}
}

// notifyErr reports a failed user action. Stale results stay silent.
func (d Deps) notifyErr(err error) {
	if domain.Classify(err) == domain.KindStale {
		return
	}
	d.Notifier.Notify(out.LevelError, domain.UserMessage(err))
}
