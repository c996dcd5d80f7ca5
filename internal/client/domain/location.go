package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Locations is the fixed list offered in booking and availability forms.
var Locations = []string{
	"Downtown",
	"Airport",
	"Mall",
	"University",
	"Tech Park",
	"Hospital",
	"Stadium",
	"Railway Station",
	"Bus Terminal",
	"Beach",
}

// NormalizeLocation matches s case-insensitively against Locations.
func NormalizeLocation(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, loc := range Locations {
		if strings.EqualFold(loc, s) {
			return loc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLocation, s)
}

func IsLocation(s string) bool { return slices.Contains(Locations, s) }

// ValidateRoute checks a pickup/destination pair before a quote or booking.
func ValidateRoute(pickup, destination string) (string, string, error) {
	p, err := NormalizeLocation(pickup)
	if err != nil {
		return "", "", fmt.Errorf("pickup: %w", err)
	}
	d, err := NormalizeLocation(destination)
	if err != nil {
		return "", "", fmt.Errorf("destination: %w", err)
	}
	if p == d {
		return "", "", ErrSameLocation
	}
	return p, d, nil
}
