package domain

import "time"

// Snapshot is the system-wide statistics view, replaced whole on every refresh.
type Snapshot struct {
	ServerID     string
	IsLeader     bool
	LamportClock int64
	VectorClock  map[string]int64
	SystemTime   time.Time

	Users   UserCounts
	Rides   RideCounts
	Drivers DriverCounts
}

type UserCounts struct {
	Total   int
	Riders  int
	Drivers int
}

type RideCounts struct {
	Total     int
	Active    int
	Completed int
	Cancelled int
}

type DriverCounts struct {
	Total     int
	Available int
}

// TimeSync is the gateway's answer to a clock sync request.
type TimeSync struct {
	ServerTime time.Time
	Offset     time.Duration
}

// Health is the gateway /health payload.
type Health struct {
	Status   string
	ServerID string
	IsLeader bool
}

// Backend is one server behind the gateway's load balancer.
type Backend struct {
	Port              string
	Status            string
	ActiveConnections int
	LastHealthCheck   string
}

// BalancerStats lists backends ordered by port.
type BalancerStats struct {
	Backends []Backend
}

// ServerClock is the backend's view of time: wall clock plus logical clocks.
type ServerClock struct {
	UTC          time.Time
	LamportClock int64
	VectorClock  map[string]int64
}
