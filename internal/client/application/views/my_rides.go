package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/application/usecase"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

var ErrActionPending = errors.New("an action on this ride is already in progress")

// MyRidesView lists the user's rides, refreshed every 15 s, on demand, and
// whenever the ride feed reports a change.
type MyRidesView struct {
	deps  Deps
	cache *Cache[[]domain.Ride]
	sched *scheduler.Scheduler[[]domain.Ride]
	feed  func()

	pending *pendingSet
}

func newMyRidesView(r *Router) View {
	d := r.deps
	v := &MyRidesView{deps: d, cache: NewCache[[]domain.Ride](), pending: newPendingSet()}
	v.sched = scheduler.New(d.Loop, v.fetch, v.cache.Replace, v.cache.Fail,
		d.schedOptions("user_rides", d.Sync.Rides()))
	return v
}

func (v *MyRidesView) fetch(ctx context.Context) ([]domain.Ride, error) {
	sess, ok := v.deps.Sessions.Current()
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	return v.deps.Gateway.ListUserRides(ctx, sess.Username)
}

func (v *MyRidesView) Mount() {
	v.sched.Start()
	if v.deps.Feed != nil {
		v.feed = v.deps.Feed.Subscribe(func(domain.RideEvent) {
			v.deps.Loop.Post(v.sched.Refresh)
		})
	}
}

func (v *MyRidesView) Unmount() {
	v.sched.Stop()
	if v.feed != nil {
		v.feed()
		v.feed = nil
	}
}

func (v *MyRidesView) Rides() []domain.Ride {
	rides, _ := v.cache.Get()
	return rides
}

func (v *MyRidesView) Err() error             { return v.cache.Err() }
func (v *MyRidesView) Ready() <-chan struct{} { return v.cache.Ready() }
func (v *MyRidesView) Updated() time.Time     { return v.cache.Updated() }

// Refresh asks for an immediate reload.
func (v *MyRidesView) Refresh(ctx context.Context) error {
	return v.deps.Loop.Call(ctx, v.sched.Refresh)
}

func (v *MyRidesView) Pending(rideID string) bool { return v.pending.has(rideID) }

// CancelPreview is what the confirmation prompt shows.
type CancelPreview struct {
	Ride    domain.Ride
	Penalty float64
}

func (v *MyRidesView) PreviewCancel(rideID string) (*CancelPreview, error) {
	ride, ok := findRide(v.Rides(), rideID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRideNotFound, rideID)
	}
	if !domain.CanCancel(ride.Status) {
		return nil, fmt.Errorf("ride %s is %s: %w", rideID, ride.Status, domain.ErrRideNotCancellable)
	}
	penalty, err := domain.CancellationPenalty(ride.Status)
	if err != nil {
		return nil, err
	}
	return &CancelPreview{Ride: ride, Penalty: penalty}, nil
}

// Cancel runs the cancellation the user already confirmed. The ride stays
// marked as pending until the gateway answers.
func (v *MyRidesView) Cancel(ctx context.Context, rideID string) (*in.CancelRideOutput, error) {
	preview, err := v.PreviewCancel(rideID)
	if err != nil {
		v.deps.notifyErr(err)
		return nil, err
	}
	if err := v.mark(ctx, rideID); err != nil {
		return nil, err
	}

	res, err := v.deps.CancelRide.Execute(ctx, in.CancelRideInput{RideID: rideID, Status: preview.Ride.Status})

	callErr := v.deps.Loop.Call(context.WithoutCancel(ctx), func() {
		v.pending.remove(rideID)
		if err != nil {
			v.deps.notifyErr(err)
			return
		}
		v.deps.Notifier.Notify(out.LevelSuccess, usecase.CancelNotice(res))
		v.sched.Refresh()
	})
	if err != nil {
		return nil, err
	}
	return res, callErr
}

// Advance moves one of the driver's rides to the next status (start or
// complete). Like Cancel, the ride is pending until the gateway answers.
func (v *MyRidesView) Advance(ctx context.Context, rideID string, to domain.RideStatus) (*in.UpdateRideStatusOutput, error) {
	ride, ok := findRide(v.Rides(), rideID)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrRideNotFound, rideID)
		v.deps.notifyErr(err)
		return nil, err
	}
	if err := v.mark(ctx, rideID); err != nil {
		return nil, err
	}

	res, err := v.deps.UpdateRideStatus.Execute(ctx, in.UpdateRideStatusInput{Ride: ride, To: to})

	callErr := v.deps.Loop.Call(context.WithoutCancel(ctx), func() {
		v.pending.remove(rideID)
		if err != nil {
			v.deps.notifyErr(err)
			return
		}
		v.deps.Notifier.Notify(out.LevelSuccess, res.Message)
		v.sched.Refresh()
	})
	if err != nil {
		return nil, err
	}
	return res, callErr
}

func (v *MyRidesView) mark(ctx context.Context, rideID string) error {
	var dup bool
	if err := v.deps.Loop.Call(ctx, func() { dup = !v.pending.add(rideID) }); err != nil {
		return err
	}
	if dup {
		v.deps.Log.Debug(logger.Entry{Action: "ride_action_pending", RideID: rideID, Message: ErrActionPending.Error()})
		return ErrActionPending
	}
	return nil
}

func findRide(rides []domain.Ride, id string) (domain.Ride, bool) {
	for _, r := range rides {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Ride{}, false
}

// pendingSet marks rides with an action in flight. Written on the loop only.
type pendingSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func newPendingSet() *pendingSet { return &pendingSet{ids: map[string]struct{}{}} }

func (p *pendingSet) add(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ids[id]; ok {
		return false
	}
	p.ids[id] = struct{}{}
	return true
}

func (p *pendingSet) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ids, id)
}

func (p *pendingSet) has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ids[id]
	return ok
}
