package usecase

import (
	"context"
	"fmt"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// QuoteRideService реализует QuoteRideUseCase
type QuoteRideService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewQuoteRideService(gateway out.Gateway, session SessionSource, log *logger.Logger) *QuoteRideService {
	return &QuoteRideService{gateway: gateway, session: session, log: log}
}

// Execute проверяет маршрут и наличие машин у точки посадки.
func (s *QuoteRideService) Execute(ctx context.Context, input in.QuoteRideInput) (*in.QuoteRideOutput, error) {
	if _, err := requireRole(s.session, domain.RoleRider); err != nil {
		return nil, err
	}
	quote, err := domain.EstimateFare(input.Pickup, input.Destination)
	if err != nil {
		return nil, err
	}

	drivers, err := s.gateway.ListAvailableDrivers(ctx, quote.Pickup)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, fmt.Errorf("%w near %s", domain.ErrNoCabsAvailable, quote.Pickup)
	}

	s.log.Debug(logger.Entry{
		Action:  "ride_quoted",
		Message: fmt.Sprintf("%s -> %s", quote.Pickup, quote.Destination),
		Additional: map[string]any{
			"distance_km": quote.DistanceKm,
			"fare":        quote.Fare,
			"drivers":     len(drivers),
		},
	})
	return &in.QuoteRideOutput{Quote: quote, Drivers: drivers}, nil
}

// BookRideService реализует BookRideUseCase
type BookRideService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewBookRideService(gateway out.Gateway, session SessionSource, log *logger.Logger) *BookRideService {
	return &BookRideService{gateway: gateway, session: session, log: log}
}

func (s *BookRideService) Execute(ctx context.Context, input in.BookRideInput) (*in.BookRideOutput, error) {
	sess, err := requireRole(s.session, domain.RoleRider)
	if err != nil {
		return nil, err
	}
	pickup, dest, err := domain.ValidateRoute(input.Pickup, input.Destination)
	if err != nil {
		return nil, err
	}

	booking, err := s.gateway.BookRide(ctx, out.BookRideInput{
		Username:    sess.Username,
		Pickup:      pickup,
		Destination: dest,
	})
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:     "book_ride_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"pickup": pickup, "destination": dest},
		})
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:  "ride_booked",
		Message: "ride booked",
		RideID:  booking.Ride.ID,
		Additional: map[string]any{
			"driver": booking.Ride.DriverName,
			"fare":   booking.Ride.Fare,
		},
	})
	msg := booking.Message
	if msg == "" {
		msg = "Ride booked successfully!"
	}
	return &in.BookRideOutput{Ride: booking.Ride, Message: msg}, nil
}
