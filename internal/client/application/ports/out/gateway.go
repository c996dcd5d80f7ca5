package out

import (
	"context"
	"time"

	"cabconnect/internal/client/domain"
)

// LoginResult: ответ гейтвея на успешный логин.
type LoginResult struct {
	Role    domain.Role
	Profile domain.Profile
	Token   string
	Message string
}

type RegisterInput struct {
	Username string
	Password string
	Role     domain.Role
	Name     string
	Email    string
	Phone    string
}

type BookRideInput struct {
	Username    string
	Pickup      string
	Destination string
}

// Gateway: удалённый сервис CabConnect. Every method is a network call that
// may be slow; none of them may be invoked from the event loop.
//
// Errors: *domain.TransportError for network/5xx, *domain.DomainError for a
// refusal, domain.ErrUnauthenticated when a token-bearing call got 401.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) (string, error)

	BookRide(ctx context.Context, input BookRideInput) (*domain.Booking, error)
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	CancelRide(ctx context.Context, rideID string) (*domain.Cancellation, error)
	AcceptRide(ctx context.Context, rideID string) (*domain.Ride, error)
	UpdateRideStatus(ctx context.Context, rideID string, status domain.RideStatus) (string, error)
	SetAvailability(ctx context.Context, a domain.Availability) error

	ListAvailableDrivers(ctx context.Context, location string) ([]domain.Driver, error)
	ListUserRides(ctx context.Context, username string) ([]domain.Ride, error)
	ListUnassignedRides(ctx context.Context) ([]domain.Ride, error)
	ListActiveRides(ctx context.Context) ([]domain.Ride, error)

	GetSystemSnapshot(ctx context.Context) (*domain.Snapshot, error)
	GetBalancerStats(ctx context.Context) (*domain.BalancerStats, error)
	SyncTime(ctx context.Context, clientTime time.Time) (*domain.TimeSync, error)
	GetServerClock(ctx context.Context) (*domain.ServerClock, error)
	Health(ctx context.Context) (*domain.Health, error)
}
