package httpgateway

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"cabconnect/internal/client/domain"
)

// envelope is the part every gateway response shares.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userInfoDTO struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Rating          float64 `json:"rating"`
	CurrentLocation string  `json:"current_location"`
	IsAvailable     *bool   `json:"is_available"`
}

type loginResponse struct {
	UserType string      `json:"user_type"`
	UserInfo userInfoDTO `json:"user_info"`
	Token    string      `json:"token"`
	Message  string      `json:"message"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type bookRequest struct {
	Username    string `json:"username"`
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
}

type availabilityRequest struct {
	DriverName  string `json:"driver_name"`
	IsAvailable bool   `json:"is_available"`
	Location    string `json:"location"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type timeSyncRequest struct {
	ClientTime float64 `json:"client_time"`
}

// rideDTO matches ride_info entries. Booking responses are flat and use
// estimated_fare instead of fare.
type rideDTO struct {
	RideID            string    `json:"ride_id"`
	RiderName         string    `json:"rider_name"`
	DriverName        *string   `json:"driver_name"`
	Pickup            string    `json:"pickup"`
	Destination       string    `json:"destination"`
	Status            string    `json:"status"`
	BookingTime       flexTime  `json:"booking_time"`
	StartTime         flexTime  `json:"start_time"`
	EndTime           flexTime  `json:"end_time"`
	EstimatedTime     flexFloat `json:"estimated_time"`
	EstimatedDistance flexFloat `json:"estimated_distance"`
	Fare              flexFloat `json:"fare"`
	EstimatedFare     flexFloat `json:"estimated_fare"`
	PaymentStatus     string    `json:"payment_status"`
}

func (r rideDTO) toDomain() domain.Ride {
	ride := domain.Ride{
		ID:                r.RideID,
		RiderName:         r.RiderName,
		Pickup:            r.Pickup,
		Destination:       r.Destination,
		Status:            domain.RideStatus(r.Status),
		BookingTime:       r.BookingTime.Time,
		EstimatedMinutes:  int(math.Round(float64(r.EstimatedTime))),
		EstimatedDistance: float64(r.EstimatedDistance),
		Fare:              float64(r.Fare),
		PaymentStatus:     r.PaymentStatus,
	}
	if st, err := domain.ParseRideStatus(r.Status); err == nil {
		ride.Status = st
	}
	if r.DriverName != nil {
		ride.DriverName = *r.DriverName
	}
	if ride.Fare == 0 {
		ride.Fare = float64(r.EstimatedFare)
	}
	if !r.StartTime.IsZero() {
		t := r.StartTime.Time
		ride.StartTime = &t
	}
	if !r.EndTime.IsZero() {
		t := r.EndTime.Time
		ride.EndTime = &t
	}
	return ride
}

type rideResponse struct {
	RideInfo *rideDTO `json:"ride_info"`
	Ride     *rideDTO `json:"ride"`
}

type bookResponse struct {
	rideDTO
	Ride    *rideDTO `json:"ride"`
	Message string   `json:"message"`
}

type ridesResponse struct {
	Rides []rideDTO `json:"rides"`
}

type activeRidesResponse struct {
	ActiveRides []rideDTO `json:"active_rides"`
}

type cancelResponse struct {
	Message       string   `json:"message"`
	RatingPenalty *float64 `json:"rating_penalty"`
}

type driverDTO struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Rating   float64 `json:"rating"`
}

type driversResponse struct {
	AvailableDrivers []driverDTO `json:"available_drivers"`
}

type statsDTO struct {
	ServerID     string           `json:"server_id"`
	IsLeader     bool             `json:"is_leader"`
	LamportClock int64            `json:"lamport_clock"`
	VectorClock  map[string]int64 `json:"vector_clock"`
	SystemTime   flexTime         `json:"system_time"`
	Users        struct {
		Total   int `json:"total"`
		Riders  int `json:"riders"`
		Drivers int `json:"drivers"`
	} `json:"users"`
	Rides struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Completed int `json:"completed"`
		Cancelled int `json:"cancelled"`
	} `json:"rides"`
	Drivers struct {
		Total     int `json:"total"`
		Available int `json:"available"`
	} `json:"drivers"`
}

type statsResponse struct {
	Stats *statsDTO `json:"stats"`
}

func (s statsDTO) toDomain() domain.Snapshot {
	return domain.Snapshot{
		ServerID:     s.ServerID,
		IsLeader:     s.IsLeader,
		LamportClock: s.LamportClock,
		VectorClock:  s.VectorClock,
		SystemTime:   s.SystemTime.Time,
		Users:        domain.UserCounts{Total: s.Users.Total, Riders: s.Users.Riders, Drivers: s.Users.Drivers},
		Rides: domain.RideCounts{
			Total:     s.Rides.Total,
			Active:    s.Rides.Active,
			Completed: s.Rides.Completed,
			Cancelled: s.Rides.Cancelled,
		},
		Drivers: domain.DriverCounts{Total: s.Drivers.Total, Available: s.Drivers.Available},
	}
}

type timeSyncResponse struct {
	ServerTime flexTime  `json:"server_time"`
	TimeDiff   flexFloat `json:"time_diff"`
}

// balancerResponse maps are keyed by backend port.
type balancerResponse struct {
	ActiveConnections map[string]int    `json:"active_connections"`
	ServerStatus      map[string]string `json:"server_status"`
	LastHealthCheck   map[string]string `json:"last_health_check"`
}

func (b balancerResponse) toDomain() domain.BalancerStats {
	ports := make([]string, 0, len(b.ServerStatus))
	for p := range b.ServerStatus {
		ports = append(ports, p)
	}
	for p := range b.ActiveConnections {
		if _, ok := b.ServerStatus[p]; !ok {
			ports = append(ports, p)
		}
	}
	slices.SortFunc(ports, comparePorts)

	stats := domain.BalancerStats{Backends: make([]domain.Backend, 0, len(ports))}
	for _, p := range ports {
		stats.Backends = append(stats.Backends, domain.Backend{
			Port:              p,
			Status:            b.ServerStatus[p],
			ActiveConnections: b.ActiveConnections[p],
			LastHealthCheck:   b.LastHealthCheck[p],
		})
	}
	return stats
}

// comparePorts orders numerically when both keys are numbers.
func comparePorts(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return strings.Compare(a, b)
}

type serverTimeResponse struct {
	UTCTime     flexTime         `json:"utc_time"`
	LamportTime int64            `json:"lamport_time"`
	VectorClock map[string]int64 `json:"vector_clock"`
}

type healthResponse struct {
	Status        string `json:"status"`
	BackendStatus struct {
		ServerID string `json:"server_id"`
		IsLeader bool   `json:"is_leader"`
	} `json:"backend_status"`
}

// flexTime accepts ISO timestamps with or without zone, epoch seconds, or null.
type flexTime struct{ time.Time }

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		secs, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("time: %w", err)
		}
		t.Time = epoch(secs)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("time: unrecognised format %q", s)
}

func epoch(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// flexFloat accepts numbers, numeric strings and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*f = flexFloat(v)
	return nil
}
