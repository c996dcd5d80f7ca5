package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"cabconnect/internal/client/domain"
)

func printSession(w io.Writer, s domain.Session) {
	fmt.Fprintf(w, "Username: %s\n", s.Username)
	fmt.Fprintf(w, "Role:     %s\n", s.Role)
	if s.Name != "" {
		fmt.Fprintf(w, "Name:     %s\n", s.Name)
	}
	if s.Email != "" {
		fmt.Fprintf(w, "Email:    %s\n", s.Email)
	}
	fmt.Fprintf(w, "Rating:   %.1f\n", s.Rating)
	if s.CurrentLocation != "" {
		fmt.Fprintf(w, "Location: %s\n", s.CurrentLocation)
	}
	if s.IsAvailable != nil {
		fmt.Fprintf(w, "Available: %t\n", *s.IsAvailable)
	}
}

func printRides(w io.Writer, rides []domain.Ride, pending func(string) bool) {
	if len(rides) == 0 {
		fmt.Fprintln(w, "No rides.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROUTE\tSTATUS\tRIDER\tDRIVER\tFARE\tBOOKED")
	for _, r := range rides {
		status := string(r.Status)
		if pending != nil && pending(r.ID) {
			status += " (pending)"
		}
		driver := r.DriverName
		if driver == "" {
			driver = "-"
		}
		fmt.Fprintf(tw, "%s\t%s → %s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.ID, r.Pickup, r.Destination, status, r.RiderName, driver, r.Fare, formatTime(r.BookingTime))
	}
	_ = tw.Flush()
}

func printQuote(w io.Writer, q domain.Quote, drivers []domain.Driver) {
	fmt.Fprintf(w, "Route:     %s → %s\n", q.Pickup, q.Destination)
	fmt.Fprintf(w, "Distance:  %d km\n", q.DistanceKm)
	fmt.Fprintf(w, "Fare:      %.2f\n", q.Fare)
	fmt.Fprintf(w, "Duration:  ~%d min\n", q.EstimatedMinutes)
	fmt.Fprintf(w, "Cabs near pickup: %d\n", len(drivers))
}

func printDrivers(w io.Writer, drivers []domain.Driver) {
	if len(drivers) == 0 {
		fmt.Fprintln(w, "No drivers available.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tLOCATION\tRATING")
	for _, d := range drivers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n", d.Username, d.Name, d.Location, d.Rating)
	}
	_ = tw.Flush()
}

func printSnapshot(w io.Writer, s domain.Snapshot) {
	role := "follower"
	if s.IsLeader {
		role = "leader"
	}
	fmt.Fprintf(w, "Server:    %s (%s)\n", s.ServerID, role)
	fmt.Fprintf(w, "Lamport:   %d\n", s.LamportClock)
	if len(s.VectorClock) > 0 {
		fmt.Fprintf(w, "Vector:    %s\n", formatVector(s.VectorClock))
	}
	fmt.Fprintf(w, "Time:      %s\n", formatTime(s.SystemTime))
	fmt.Fprintf(w, "Users:     %d (%d riders, %d drivers)\n", s.Users.Total, s.Users.Riders, s.Users.Drivers)
	fmt.Fprintf(w, "Rides:     %d (%d active, %d completed, %d cancelled)\n",
		s.Rides.Total, s.Rides.Active, s.Rides.Completed, s.Rides.Cancelled)
	fmt.Fprintf(w, "Drivers:   %d (%d available)\n", s.Drivers.Total, s.Drivers.Available)
}

func printBalancer(w io.Writer, s domain.BalancerStats) {
	if len(s.Backends) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tSTATUS\tCONNECTIONS\tLAST CHECK")
	for _, b := range s.Backends {
		last := b.LastHealthCheck
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.Port, b.Status, b.ActiveConnections, last)
	}
	_ = tw.Flush()
}

func printClock(w io.Writer, c domain.ServerClock) {
	fmt.Fprintf(w, "UTC:       %s\n", c.UTC.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Lamport:   %d\n", c.LamportClock)
	if len(c.VectorClock) > 0 {
		fmt.Fprintf(w, "Vector:    %s\n", formatVector(c.VectorClock))
	}
}

func formatVector(vc map[string]int64) string {
	ids := make([]string, 0, len(vc))
	for id := range vc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, vc[id]))
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
