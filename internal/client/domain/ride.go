package domain

import (
	"fmt"
	"strings"
	"time"
)

type RideStatus string

const (
	StatusRequested  RideStatus = "REQUESTED"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusCompleted  RideStatus = "COMPLETED"
	StatusCancelled  RideStatus = "CANCELLED"
)

func ParseRideStatus(s string) (RideStatus, error) {
	st := RideStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusRequested, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal statuses never change again.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Ride: поездка в том виде, в каком её отдаёт гейтвей.
type Ride struct {
	ID                string
	RiderName         string
	DriverName        string
	Pickup            string
	Destination       string
	Status            RideStatus
	BookingTime       time.Time
	StartTime         *time.Time
	EndTime           *time.Time
	EstimatedMinutes  int
	EstimatedDistance float64
	Fare              float64
	PaymentStatus     string
}

func (r Ride) HasDriver() bool { return r.DriverName != "" }

// Active rides are the ones the rider still cares about.
func (r Ride) Active() bool { return !r.Status.Terminal() }

// Booking is the confirmed result of a ride request.
type Booking struct {
	Ride    Ride
	Message string
}

// Quote is a client-side fare estimate shown before confirming.
type Quote struct {
	Pickup           string
	Destination      string
	DistanceKm       int
	Fare             float64
	EstimatedMinutes int
}

// Driver is an available cab as listed by the gateway.
type Driver struct {
	Username string
	Name     string
	Location string
	Rating   float64
}

// Cancellation is what the gateway reports after cancelling.
type Cancellation struct {
	RideID        string
	Message       string
	RatingPenalty float64
	// PenaltyReported is false when the response carried no rating_penalty.
	PenaltyReported bool
}

// Availability is a driver's on/off duty toggle.
type Availability struct {
	DriverName string
	Available  bool
	Location   string
}

// RideEvent is a push notification about a ride from the gateway feed.
type RideEvent struct {
	Type   string
	RideID string
	Status RideStatus
}
