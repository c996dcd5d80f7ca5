// Package testutil holds in-memory stand-ins for the client's out ports.
package testutil

import (
	"context"
	"sync"
	"time"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
)

// Gateway is a scriptable out.Gateway. Unset funcs return zero values.
type Gateway struct {
	LoginFn                func(ctx context.Context, username, password string) (*out.LoginResult, error)
	RegisterFn             func(ctx context.Context, in out.RegisterInput) (string, error)
	BookRideFn             func(ctx context.Context, in out.BookRideInput) (*domain.Booking, error)
	GetRideFn              func(ctx context.Context, id string) (*domain.Ride, error)
	CancelRideFn           func(ctx context.Context, id string) (*domain.Cancellation, error)
	AcceptRideFn           func(ctx context.Context, id string) (*domain.Ride, error)
	UpdateRideStatusFn     func(ctx context.Context, id string, status domain.RideStatus) (string, error)
	SetAvailabilityFn      func(ctx context.Context, a domain.Availability) error
	ListAvailableDriversFn func(ctx context.Context, location string) ([]domain.Driver, error)
	ListUserRidesFn        func(ctx context.Context, username string) ([]domain.Ride, error)
	ListUnassignedRidesFn  func(ctx context.Context) ([]domain.Ride, error)
	ListActiveRidesFn      func(ctx context.Context) ([]domain.Ride, error)
	GetSystemSnapshotFn    func(ctx context.Context) (*domain.Snapshot, error)
	GetBalancerStatsFn     func(ctx context.Context) (*domain.BalancerStats, error)
	SyncTimeFn             func(ctx context.Context, t time.Time) (*domain.TimeSync, error)
	GetServerClockFn       func(ctx context.Context) (*domain.ServerClock, error)
	HealthFn               func(ctx context.Context) (*domain.Health, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ out.Gateway = (*Gateway)(nil)

func (g *Gateway) record(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[op]++
}

// Calls returns how many times op was invoked.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) Login(ctx context.Context, username, password string) (*out.LoginResult, error) {
	g.record("Login")
	if g.LoginFn == nil {
		return &out.LoginResult{Role: domain.RoleRider}, nil
	}
	return g.LoginFn(ctx, username, password)
}

func (g *Gateway) Register(ctx context.Context, in out.RegisterInput) (string, error) {
	g.record("Register")
	if g.RegisterFn == nil {
		return "", nil
	}
	return g.RegisterFn(ctx, in)
}

func (g *Gateway) BookRide(ctx context.Context, in out.BookRideInput) (*domain.Booking, error) {
	g.record("BookRide")
	if g.BookRideFn == nil {
		return &domain.Booking{}, nil
	}
	return g.BookRideFn(ctx, in)
}

func (g *Gateway) GetRide(ctx context.Context, id string) (*domain.Ride, error) {
	g.record("GetRide")
	if g.GetRideFn == nil {
		return &domain.Ride{ID: id}, nil
	}
	return g.GetRideFn(ctx, id)
}

func (g *Gateway) CancelRide(ctx context.Context, id string) (*domain.Cancellation, error) {
	g.record("CancelRide")
	if g.CancelRideFn == nil {
		return &domain.Cancellation{RideID: id}, nil
	}
	return g.CancelRideFn(ctx, id)
}

func (g *Gateway) AcceptRide(ctx context.Context, id string) (*domain.Ride, error) {
	g.record("AcceptRide")
	if g.AcceptRideFn == nil {
		return &domain.Ride{ID: id, Status: domain.StatusAccepted}, nil
	}
	return g.AcceptRideFn(ctx, id)
}

func (g *Gateway) UpdateRideStatus(ctx context.Context, id string, status domain.RideStatus) (string, error) {
	g.record("UpdateRideStatus")
	if g.UpdateRideStatusFn == nil {
		return "Ride status updated to " + string(status), nil
	}
	return g.UpdateRideStatusFn(ctx, id, status)
}

func (g *Gateway) SetAvailability(ctx context.Context, a domain.Availability) error {
	g.record("SetAvailability")
	if g.SetAvailabilityFn == nil {
		return nil
	}
	return g.SetAvailabilityFn(ctx, a)
}

func (g *Gateway) ListAvailableDrivers(ctx context.Context, location string) ([]domain.Driver, error) {
	g.record("ListAvailableDrivers")
	if g.ListAvailableDriversFn == nil {
		return nil, nil
	}
	return g.ListAvailableDriversFn(ctx, location)
}

func (g *Gateway) ListUserRides(ctx context.Context, username string) ([]domain.Ride, error) {
	g.record("ListUserRides")
	if g.ListUserRidesFn == nil {
		return nil, nil
	}
	return g.ListUserRidesFn(ctx, username)
}

func (g *Gateway) ListUnassignedRides(ctx context.Context) ([]domain.Ride, error) {
	g.record("ListUnassignedRides")
	if g.ListUnassignedRidesFn == nil {
		return nil, nil
	}
	return g.ListUnassignedRidesFn(ctx)
}

func (g *Gateway) ListActiveRides(ctx context.Context) ([]domain.Ride, error) {
	g.record("ListActiveRides")
	if g.ListActiveRidesFn == nil {
		return nil, nil
	}
	return g.ListActiveRidesFn(ctx)
}

func (g *Gateway) GetSystemSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	g.record("GetSystemSnapshot")
	if g.GetSystemSnapshotFn == nil {
		return &domain.Snapshot{}, nil
	}
	return g.GetSystemSnapshotFn(ctx)
}

func (g *Gateway) GetBalancerStats(ctx context.Context) (*domain.BalancerStats, error) {
	g.record("GetBalancerStats")
	if g.GetBalancerStatsFn == nil {
		return &domain.BalancerStats{}, nil
	}
	return g.GetBalancerStatsFn(ctx)
}

func (g *Gateway) GetServerClock(ctx context.Context) (*domain.ServerClock, error) {
	g.record("GetServerClock")
	if g.GetServerClockFn == nil {
		return &domain.ServerClock{}, nil
	}
	return g.GetServerClockFn(ctx)
}

func (g *Gateway) SyncTime(ctx context.Context, t time.Time) (*domain.TimeSync, error) {
	g.record("SyncTime")
	if g.SyncTimeFn == nil {
		return &domain.TimeSync{ServerTime: t}, nil
	}
	return g.SyncTimeFn(ctx, t)
}

func (g *Gateway) Health(ctx context.Context) (*domain.Health, error) {
	g.record("Health")
	if g.HealthFn == nil {
		return &domain.Health{Status: "ok"}, nil
	}
	return g.HealthFn(ctx)
}

// Storage is an in-memory out.SessionStorage.
type Storage struct {
	mu      sync.Mutex
	profile []byte
	token   string
	clears  int
}

var _ out.SessionStorage = (*Storage)(nil)

func NewStorage(profile, token string) *Storage {
	return &Storage{profile: []byte(profile), token: token}
}

func (s *Storage) Save(_ context.Context, profile []byte, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = append([]byte(nil), profile...)
	s.token = token
	return nil
}

func (s *Storage) Load(context.Context) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.profile...), s.token, nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile, s.token = nil, ""
	s.clears++
	return nil
}

func (s *Storage) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Storage) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Note is one recorded notification.
type Note struct {
	Level   out.Level
	Message string
}

// Notifier records notifications.
type Notifier struct {
	mu    sync.Mutex
	notes []Note
}

var _ out.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(level out.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, Note{Level: level, Message: message})
}

func (n *Notifier) Notes() []Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Note(nil), n.notes...)
}

// Last returns the latest note, or the zero Note.
func (n *Notifier) Last() Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return Note{}
	}
	return n.notes[len(n.notes)-1]
}
