package usecase

import (
	"context"
	"fmt"
	"math"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// CancelRideService реализует CancelRideUseCase
type CancelRideService struct {
	gateway out.Gateway
	session SessionSource
	log     *logger.Logger
}

func NewCancelRideService(gateway out.Gateway, session SessionSource, log *logger.Logger) *CancelRideService {
	return &CancelRideService{gateway: gateway, session: session, log: log}
}

// Execute отменяет поездку. The penalty the gateway reports wins over the
// locally expected one; a mismatch is only logged.
func (s *CancelRideService) Execute(ctx context.Context, input in.CancelRideInput) (*in.CancelRideOutput, error) {
	if _, err := requireRole(s.session, domain.RoleRider); err != nil {
		return nil, err
	}
	if !domain.CanCancel(input.Status) {
		return nil, fmt.Errorf("ride %s is %s: %w", input.RideID, input.Status, domain.ErrRideNotCancellable)
	}
	expected, err := domain.CancellationPenalty(input.Status)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.CancelRide(ctx, input.RideID)
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:  "cancel_ride_failed",
			Message: err.Error(),
			RideID:  input.RideID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, err
	}

	applied := expected
	if res.PenaltyReported {
		applied = res.RatingPenalty
	}
	if math.Abs(applied-expected) > 1e-9 {
		s.log.Warn(logger.Entry{
			Action:  "cancel_penalty_mismatch",
			Message: "gateway applied a different penalty than expected",
			RideID:  input.RideID,
			Additional: map[string]any{
				"status":   string(input.Status),
				"expected": expected,
				"applied":  applied,
			},
		})
	}
	s.log.Info(logger.Entry{
		Action:     "ride_cancelled",
		Message:    "ride cancelled",
		RideID:     input.RideID,
		Additional: map[string]any{"penalty": applied},
	})

	return &in.CancelRideOutput{
		RideID:          input.RideID,
		ExpectedPenalty: expected,
		AppliedPenalty:  applied,
		Message:         res.Message,
	}, nil
}

// CancelNotice is the success text shown to the rider.
func CancelNotice(o *in.CancelRideOutput) string {
	return "Ride cancelled. Your rating was reduced by " + domain.FormatPenalty(o.AppliedPenalty)
}
