package in

import (
	"context"

	"cabconnect/internal/client/domain"
)

type UpdateRideStatusInput struct {
	// Ride is the driver's current copy; its status is the transition's origin.
	Ride domain.Ride
	To   domain.RideStatus
}

type UpdateRideStatusOutput struct {
	Ride    domain.Ride
	Message string
}

// UpdateRideStatusUseCase: водитель начинает или завершает свою поездку.
type UpdateRideStatusUseCase interface {
	Execute(ctx context.Context, input UpdateRideStatusInput) (*UpdateRideStatusOutput, error)
}
