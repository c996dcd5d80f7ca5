package views

import (
	"cabconnect/internal/client/application/guard"
	"cabconnect/internal/client/domain"
)

const (
	PathHome           = "/"
	PathBookRide       = "/book-ride"
	PathMyRides        = "/my-rides"
	PathAvailableRides = "/available-rides"
	PathAvailability   = "/availability"
	PathStats          = "/stats"
	PathLogin          = "/login"
	PathRegister       = "/register"
)

type Route struct {
	Path        string
	Title       string
	Requirement guard.Requirement
	New         func(r *Router) View
}

func Routes() []Route {
	return []Route{
		{PathHome, "Dashboard", guard.Authenticated, newDashboardView},
		{PathBookRide, "Book a Ride", guard.Rider, newBookRideView},
		{PathMyRides, "My Rides", guard.Authenticated, newMyRidesView},
		{PathAvailableRides, "Available Rides", guard.Driver, newAvailableRidesView},
		{PathAvailability, "Set Availability", guard.Driver, newAvailabilityView},
		{PathStats, "System Stats", guard.Authenticated, newStatsView},
		{PathLogin, "Login", guard.Guest, newLoginView},
		{PathRegister, "Register", guard.Guest, newRegisterView},
	}
}

type MenuItem struct {
	Title string
	Path  string
}

// Menu is the navigation bar for role. Book a Ride is listed for everyone;
// drivers who follow it get the guard's warning.
func Menu(role domain.Role) []MenuItem {
	items := []MenuItem{
		{"Dashboard", PathHome},
		{"Book a Ride", PathBookRide},
		{"My Rides", PathMyRides},
	}
	if role == domain.RoleDriver {
		items = append(items,
			MenuItem{"Available Rides", PathAvailableRides},
			MenuItem{"Set Availability", PathAvailability},
		)
	}
	return append(items, MenuItem{"System Stats", PathStats})
}
