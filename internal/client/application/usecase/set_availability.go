package usecase

import (
	"context"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// SetAvailabilityService реализует SetAvailabilityUseCase
type SetAvailabilityService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewSetAvailabilityService(gateway out.Gateway, session SessionSource, log *logger.Logger) *SetAvailabilityService {
	return &SetAvailabilityService{gateway: gateway, session: session, log: log}
}

func (s *SetAvailabilityService) Execute(ctx context.Context, input in.SetAvailabilityInput) (*in.SetAvailabilityOutput, error) {
	sess, err := requireRole(s.session, domain.RoleDriver)
	if err != nil {
		return nil, err
	}
	loc, err := domain.NormalizeLocation(input.Location)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.SetAvailability(ctx, domain.Availability{
		DriverName: sess.Username,
		Available:  input.Available,
		Location:   loc,
	}); err != nil {
		s.log.Warn(logger.Entry{
			Action:  "set_availability_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:     "availability_updated",
		Message:    "driver availability updated",
		Additional: map[string]any{"available": input.Available, "location": loc},
	})
	return &in.SetAvailabilityOutput{Available: input.Available, Location: loc}, nil
}
