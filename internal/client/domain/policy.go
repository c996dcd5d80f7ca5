package domain

import (
	"math"
	"strconv"
)

// CanCancel reports whether a rider may still cancel a ride in status s.
func CanCancel(s RideStatus) bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusInProgress:
		return true
	default:
		return false
	}
}

// CancellationPenalty is the rating penalty the rider should expect for
// cancelling in status s. The gateway's reported value is authoritative.
func CancellationPenalty(s RideStatus) (float64, error) {
	switch s {
	case StatusRequested:
		return 0.1, nil
	case StatusAccepted:
		return 0.3, nil
	case StatusInProgress:
		return 0.5, nil
	default:
		return 0, ErrRideNotCancellable
	}
}

// FormatPenalty renders a rating penalty with as many decimals as it has,
// up to two: 0.3, 0.25, 1.
func FormatPenalty(p float64) string {
	return strconv.FormatFloat(math.Round(p*100)/100, 'f', -1, 64)
}

// CanAccept: водитель может взять только поездку без водителя.
func CanAccept(r Ride) bool {
	return r.Status == StatusRequested && !r.HasDriver()
}

// CanTransition describes the lifecycle REQUESTED → ACCEPTED → IN_PROGRESS →
// COMPLETED, with CANCELLED reachable from any non-terminal status.
func CanTransition(from, to RideStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusAccepted:
		return from == StatusRequested
	case StatusInProgress:
		return from == StatusAccepted
	case StatusCompleted:
		return from == StatusInProgress
	default:
		return false
	}
}

const (
	baseFare      = 50.0
	farePerKm     = 12.0
	avgSpeedKmh   = 30.0
	pickupMinutes = 5
)

// EstimateFare produces the same deterministic quote the gateway uses for a
// route between two named locations.
func EstimateFare(pickup, destination string) (Quote, error) {
	p, d, err := ValidateRoute(pickup, destination)
	if err != nil {
		return Quote{}, err
	}
	dist := routeDistance(p, d)
	return Quote{
		Pickup:           p,
		Destination:      d,
		DistanceKm:       dist,
		Fare:             baseFare + farePerKm*float64(dist),
		EstimatedMinutes: int(math.Round(float64(dist)/avgSpeedKmh*60)) + pickupMinutes,
	}, nil
}

func routeDistance(a, b string) int {
	diff := runeSum(a) - runeSum(b)
	if diff < 0 {
		diff = -diff
	}
	return 1 + diff%29
}

func runeSum(s string) int {
	n := 0
	for _, r := range s {
		n += int(r)
	}
	return n
}
