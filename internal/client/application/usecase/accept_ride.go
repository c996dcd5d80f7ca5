package usecase

import (
	"context"
	"errors"
	"fmt"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// AcceptRideService реализует AcceptRideUseCase
type AcceptRideService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewAcceptRideService(gateway out.Gateway, session SessionSource, log *logger.Logger) *AcceptRideService {
	return &AcceptRideService{gateway: gateway, session: session, log: log}
}

func (s *AcceptRideService) Execute(ctx context.Context, input in.AcceptRideInput) (*in.AcceptRideOutput, error) {
	sess, err := requireRole(s.session, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	if !domain.CanAccept(input.Ride) {
		return nil, fmt.Errorf("ride %s is %s: %w", input.Ride.ID, input.Ride.Status, domain.ErrRideNotAcceptable)
	}

	ride, err := s.gateway.AcceptRide(ctx, input.Ride.ID)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			s.log.Info(logger.Entry{
				Action:  "accept_ride_rejected",
				Message: de.Reason,
				RideID:  input.Ride.ID,
			})
		} else {
			s.log.Warn(logger.Entry{
				Action:  "accept_ride_failed",
				Message: err.Error(),
				RideID:  input.Ride.ID,
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		return nil, err
	}

	accepted := input.Ride
	if ride != nil && ride.ID != "" {
		accepted = *ride
	} else {
		accepted.Status = domain.StatusAccepted
		accepted.DriverName = sess.Username
	}

	s.log.Info(logger.Entry{
		Action:     "ride_accepted",
		Message:    "ride accepted",
		RideID:     accepted.ID,
		Additional: map[string]any{"driver": sess.Username},
	})
	return &in.AcceptRideOutput{Ride: accepted}, nil
}
