package in

import "context"

type SetAvailabilityInput struct {
	Available bool
	Location  string
}

type SetAvailabilityOutput struct {
	Available bool
	Location  string
}

// SetAvailabilityUseCase: переключение «на линии / не на линии» для водителя.
type SetAvailabilityUseCase interface {
	Execute(ctx context.Context, input SetAvailabilityInput) (*SetAvailabilityOutput, error)
}
