package in

import (
	"context"

	"cabconnect/internal/client/domain"
)

// QuoteRideInput: маршрут для предварительной оценки.
type QuoteRideInput struct {
	Pickup      string
	Destination string
}

// QuoteRideOutput: оценка стоимости плюс свободные машины у точки посадки.
type QuoteRideOutput struct {
	Quote   domain.Quote
	Drivers []domain.Driver
}

// QuoteRideUseCase checks cab availability before the rider confirms.
type QuoteRideUseCase interface {
	Execute(ctx context.Context, input QuoteRideInput) (*QuoteRideOutput, error)
}

type BookRideInput struct {
	Pickup      string
	Destination string
}

type BookRideOutput struct {
	Ride    domain.Ride
	Message string
}

// BookRideUseCase: интерфейс use case бронирования поездки.
type BookRideUseCase interface {
	Execute(ctx context.Context, input BookRideInput) (*BookRideOutput, error)
}
