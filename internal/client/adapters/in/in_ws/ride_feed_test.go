package in_ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/ws"
)

func TestRideFeedDispatchesRideEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var auth map[string]string
		if conn.ReadJSON(&auth) != nil || auth["token"] != "jwt" {
			return
		}
		_ = conn.WriteJSON(map[string]any{"type": "pong", "data": map[string]string{"status": "ok"}})
		_ = conn.WriteJSON(map[string]any{"type": "ride_status_update", "data": map[string]string{"ride_id": "r1", "status": "ACCEPTED"}})
		_ = conn.WriteJSON(map[string]any{"type": "ride_cancelled", "data": map[string]string{"ride_id": "r2", "status": "CANCELLED"}})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	feed := NewRideFeed(ws.Options{
		URL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Token: func() string { return "jwt" },
	})

	var mu sync.Mutex
	var events []domain.RideEvent
	unsubscribe := feed.Subscribe(func(ev domain.RideEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = feed.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.RideEvent{Type: "ride_status_update", RideID: "r1", Status: domain.StatusAccepted}, events[0])
	assert.Equal(t, "r2", events[1].RideID)
	assert.Equal(t, domain.StatusCancelled, events[1].Status)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	feed := NewRideFeed(ws.Options{})
	calls := 0
	unsubscribe := feed.Subscribe(func(domain.RideEvent) { calls++ })

	feed.handle("ride_completed", []byte(`{"ride_id":"r9","status":"COMPLETED"}`))
	unsubscribe()
	unsubscribe()
	feed.handle("ride_completed", []byte(`{"ride_id":"r9","status":"COMPLETED"}`))
	feed.handle("driver_location_update", []byte(`{}`))

	assert.Equal(t, 1, calls)
}
