package views

import (
	"context"
	"time"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/domain"
)

// AvailableRidesView lists rides waiting for a driver, refreshed every 5 s.
type AvailableRidesView struct {
	deps    Deps
	cache   *Cache[[]domain.Ride]
	sched   *scheduler.Scheduler[[]domain.Ride]
	pending *pendingSet
}

func newAvailableRidesView(r *Router) View {
	d := r.deps
	v := &AvailableRidesView{deps: d, cache: NewCache[[]domain.Ride](), pending: newPendingSet()}
	v.sched = scheduler.New(d.Loop, d.Gateway.ListUnassignedRides, v.cache.Replace, v.cache.Fail,
		d.schedOptions("unassigned_rides", d.Sync.AvailableRides()))
	return v
}

func (v *AvailableRidesView) Mount()   { v.sched.Start() }
func (v *AvailableRidesView) Unmount() { v.sched.Stop() }

func (v *AvailableRidesView) Rides() []domain.Ride {
	rides, _ := v.cache.Get()
	return rides
}

func (v *AvailableRidesView) Err() error                 { return v.cache.Err() }
func (v *AvailableRidesView) Ready() <-chan struct{}     { return v.cache.Ready() }
func (v *AvailableRidesView) Updated() time.Time         { return v.cache.Updated() }
func (v *AvailableRidesView) Pending(rideID string) bool { return v.pending.has(rideID) }

// Accept tries to take a ride. Another driver may win the race; the refusal
// is shown and the list reloaded.
func (v *AvailableRidesView) Accept(ctx context.Context, rideID string) (*in.AcceptRideOutput, error) {
	ride, ok := findRide(v.Rides(), rideID)
	if !ok {
		fetched, err := v.deps.Gateway.GetRide(ctx, rideID)
		if err != nil {
			v.deps.notifyErr(err)
			return nil, err
		}
		ride = *fetched
	}

	var dup bool
	if err := v.deps.Loop.Call(ctx, func() { dup = !v.pending.add(rideID) }); err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrActionPending
	}

	res, err := v.deps.AcceptRide.Execute(ctx, in.AcceptRideInput{Ride: ride})

	callErr := v.deps.Loop.Call(context.WithoutCancel(ctx), func() {
		v.pending.remove(rideID)
		if err != nil {
			v.deps.notifyErr(err)
			if domain.Classify(err) == domain.KindDomain {
				v.sched.Refresh()
			}
			return
		}
		v.deps.Notifier.Notify(out.LevelSuccess, "Ride accepted successfully!")
		v.sched.Refresh()
	})
	if err != nil {
		return nil, err
	}
	return res, callErr
}
