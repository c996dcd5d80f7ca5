package in

import (
	"context"

	"cabconnect/internal/client/domain"
)

type CancelRideInput struct {
	RideID string
	// Status is what the rider saw when confirming; it drives the expected penalty.
	Status domain.RideStatus
}

// CancelRideOutput carries both penalties. AppliedPenalty comes from the
// gateway and is the one shown to the user.
type CancelRideOutput struct {
	RideID          string
	ExpectedPenalty float64
	AppliedPenalty  float64
	Message         string
}

// CancelRideUseCase: отмена поездки пассажиром.
type CancelRideUseCase interface {
	Execute(ctx context.Context, input CancelRideInput) (*CancelRideOutput, error)
}
