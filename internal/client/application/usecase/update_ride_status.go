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

// UpdateRideStatusService реализует UpdateRideStatusUseCase
type UpdateRideStatusService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewUpdateRideStatusService(gateway out.Gateway, session SessionSource, log *logger.Logger) *UpdateRideStatusService {
	return &UpdateRideStatusService{gateway: gateway, session: session, log: log}
}

// Execute moves the driver's own ride forward: ACCEPTED → IN_PROGRESS or
// IN_PROGRESS → COMPLETED. Cancelling stays with the rider.
func (s *UpdateRideStatusService) Execute(ctx context.Context, input in.UpdateRideStatusInput) (*in.UpdateRideStatusOutput, error) {
	sess, err := requireRole(s.session, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	ride := input.Ride
	if ride.DriverName != sess.Username {
		return nil, fmt.Errorf("ride %s: %w", ride.ID, domain.ErrNotAssignedDriver)
	}
	if input.To != domain.StatusInProgress && input.To != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: drivers cannot set %s", domain.ErrInvalidStatus, input.To)
	}
	if !domain.CanTransition(ride.Status, input.To) {
		return nil, fmt.Errorf("ride %s is %s, not %s: %w", ride.ID, ride.Status, input.To, domain.ErrInvalidTransition)
	}

	msg, err := s.gateway.UpdateRideStatus(ctx, ride.ID, input.To)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			s.log.Info(logger.Entry{
				Action:  "ride_status_rejected",
				Message: de.Reason,
				RideID:  ride.ID,
			})
		} else {
			s.log.Warn(logger.Entry{
				Action:  "ride_status_failed",
				Message: err.Error(),
				RideID:  ride.ID,
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		return nil, err
	}
	if msg == "" {
		msg = "Ride status updated to " + string(input.To)
	}

	from := ride.Status
	ride.Status = input.To
	s.log.Info(logger.Entry{
		Action:     "ride_status_updated",
		Message:    msg,
		RideID:     ride.ID,
		Additional: map[string]any{"from": string(from), "to": string(input.To)},
	})
	return &in.UpdateRideStatusOutput{Ride: ride, Message: msg}, nil
}
