package in

import (
	"context"

	"cabconnect/internal/client/domain"
)

type AcceptRideInput struct {
	Ride domain.Ride
}

type AcceptRideOutput struct {
	Ride domain.Ride
}

// AcceptRideUseCase: водитель берёт свободную поездку. The gateway decides
// races between drivers.
type AcceptRideUseCase interface {
	Execute(ctx context.Context, input AcceptRideInput) (*AcceptRideOutput, error)
}
