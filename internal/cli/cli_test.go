package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fakeGateway serves just enough of the gateway API for the commands under test.
type fakeGateway struct {
	mu        sync.Mutex
	role      string
	status    string
	cancelled []string
}

func (g *fakeGateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/time/sync", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]any{"success": true, "server_time": 1700000000.0, "time_diff": 0})
	})
	r.Post("/api/login", func(w http.ResponseWriter, req *http.Request) {
		g.mu.Lock()
		role := g.role
		g.mu.Unlock()
		reply(w, map[string]any{
			"success": true, "user_type": role, "token": "tok-1",
			"user_info": map[string]any{"name": "Alice Doe", "rating": 4.8},
		})
	})
	r.Get("/api/user/{name}/rides", func(w http.ResponseWriter, req *http.Request) {
		g.mu.Lock()
		status := g.status
		g.mu.Unlock()
		reply(w, map[string]any{"success": true, "rides": []any{map[string]any{
			"ride_id": "r1", "rider_name": chi.URLParam(req, "name"), "driver_name": "dave",
			"pickup": "Downtown", "destination": "Airport", "status": status, "fare": 194.0,
		}}})
	})
	r.Post("/api/ride/{id}/cancel", func(w http.ResponseWriter, req *http.Request) {
		g.mu.Lock()
		g.cancelled = append(g.cancelled, chi.URLParam(req, "id"))
		g.status = "CANCELLED"
		g.mu.Unlock()
		reply(w, map[string]any{"success": true, "message": "Ride cancelled successfully"})
	})
	r.Put("/api/ride/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		g.mu.Lock()
		g.status = body.Status
		g.mu.Unlock()
		reply(w, map[string]any{"success": true, "message": "Ride status updated to " + body.Status})
	})
	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]any{"success": true, "stats": map[string]any{
			"server_id": "server-1", "is_leader": true, "lamport_clock": 7,
		}})
	})
	r.Get("/api/load_balancer/stats", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]any{
			"active_connections": map[string]int{"50051": 3},
			"server_status":      map[string]string{"50051": "up"},
			"last_health_check":  map[string]string{},
		})
	})
	r.Get("/api/time", func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]any{"success": true, "utc_time": "2023-11-14T22:13:20", "lamport_time": 9})
	})
	return r
}

func setup(t *testing.T, g *fakeGateway) string {
	t.Helper()
	srv := httptest.NewServer(g.routes())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	yml := fmt.Sprintf(`
gateway:
  base_url: %s/api
  timeout_seconds: 2
storage:
  dir: %s
log:
  level: error
`, srv.URL, filepath.Join(dir, "session"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client.yaml"), []byte(yml), 0o600))
	return dir
}

func run(t *testing.T, configDir, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := NewRootCommand(Options{Out: &out, In: strings.NewReader(stdin), LogOut: &logs})
	cmd.SetArgs(append([]string{"--config", configDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRiderSessionAcrossCommands(t *testing.T) {
	g := &fakeGateway{role: "RIDER", status: "ACCEPTED"}
	dir := setup(t, g)

	out, err := run(t, dir, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.Empty(t, out)

	out, err = run(t, dir, "", "login", "alice", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful!")
	assert.Contains(t, out, "Welcome, Alice Doe (RIDER)")

	out, err = run(t, dir, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: alice")
	assert.Contains(t, out, "Rating:   4.8")

	out, err = run(t, dir, "", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Book a Ride")
	assert.NotContains(t, out, "Available Rides")

	out, err = run(t, dir, "", "rides")
	require.NoError(t, err)
	assert.Contains(t, out, "Downtown → Airport")
	assert.Contains(t, out, "ACCEPTED")

	out, err = run(t, dir, "n\n", "cancel", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Your rating will drop by 0.3")
	assert.Contains(t, out, "Ride kept.")
	assert.Empty(t, g.cancelled)

	out, err = run(t, dir, "y\n", "cancel", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ride cancelled. Your rating was reduced by 0.3")
	assert.Equal(t, []string{"r1"}, g.cancelled)

	_, err = run(t, dir, "", "cancel", "r1", "--yes")
	assert.Error(t, err, "a cancelled ride cannot be cancelled again")

	out, err = run(t, dir, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	_, err = run(t, dir, "", "rides")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestDriverPagesAreGuarded(t *testing.T) {
	g := &fakeGateway{role: "DRIVER", status: "REQUESTED"}
	dir := setup(t, g)

	_, err := run(t, dir, "", "login", "dave", "-p", "pw")
	require.NoError(t, err)

	out, err := run(t, dir, "", "book", "--pickup", "Mall", "--destination", "Beach", "--yes")
	assert.ErrorIs(t, err, errForbidden)
	assert.Contains(t, out, "This page is only accessible to riders")

	out, err = run(t, dir, "", "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Rides")
	assert.Contains(t, out, "Set Availability")
}

func TestDriverMovesRideThroughLifecycle(t *testing.T) {
	g := &fakeGateway{role: "DRIVER", status: "ACCEPTED"}
	dir := setup(t, g)

	_, err := run(t, dir, "", "login", "dave", "-p", "pw")
	require.NoError(t, err)

	out, err := run(t, dir, "", "complete", "r1")
	assert.Error(t, err)
	assert.Contains(t, out, "Invalid ride status transition")

	out, err = run(t, dir, "", "start", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ride status updated to IN_PROGRESS")

	out, err = run(t, dir, "", "complete", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ride status updated to COMPLETED")

	out, err = run(t, dir, "", "rides")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")
}

func TestStatsShowsBackends(t *testing.T) {
	g := &fakeGateway{role: "RIDER", status: "REQUESTED"}
	dir := setup(t, g)

	_, err := run(t, dir, "", "login", "alice", "-p", "pw")
	require.NoError(t, err)

	out, err := run(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Server:    server-1 (leader)")
	assert.Contains(t, out, "BACKEND")
	assert.Regexp(t, `50051\s+up\s+3\s+-`, out)

	out, err = run(t, dir, "", "clock")
	require.NoError(t, err)
	assert.Contains(t, out, "UTC:       2023-11-14T22:13:20Z")
	assert.Contains(t, out, "Lamport:   9")
}
