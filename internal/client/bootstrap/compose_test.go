package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"
)

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginThenExpiryReturnsToLogin(t *testing.T) {
	var expired atomic.Bool
	r := chi.NewRouter()
	r.Post("/api/time/sync", func(w http.ResponseWriter, req *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "server_time": 1700000000.0, "time_diff": 0.2})
	})
	r.Post("/api/login", func(w http.ResponseWriter, req *http.Request) {
		reply(w, http.StatusOK, map[string]any{
			"success": true, "user_type": "RIDER", "token": "opaque-token",
			"user_info": map[string]any{"name": "Alice"},
		})
	})
	r.Get("/api/user/{name}/rides", func(w http.ResponseWriter, req *http.Request) {
		if expired.Load() {
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
			return
		}
		assert.Equal(t, "Bearer opaque-token", req.Header.Get("Authorization"))
		reply(w, http.StatusOK, map[string]any{"success": true, "rides": []any{}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Storage = config.StorageConfig{InMemory: true}
	cfg.Gateway.BaseURL = srv.URL + "/api"
	cfg.Gateway.TimeoutSeconds = 2

	app, err := Build(cfg, logger.Nop(), io.Discard)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	assert.Equal(t, domain.StatusAnonymous, app.Sessions.State().Status)
	assert.Equal(t, views.PathLogin, app.Router.Location().Path)

	v, _, err := app.Router.Go(ctx, views.PathLogin)
	require.NoError(t, err)
	login, ok := v.(*views.LoginView)
	require.True(t, ok)
	_, err = login.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return app.Router.Location().Path == views.PathHome }, time.Second, 5*time.Millisecond)

	v, loc, err := app.Router.Go(ctx, views.PathMyRides)
	require.NoError(t, err)
	assert.Equal(t, views.PathMyRides, loc.Path)
	rides := v.(*views.MyRidesView)
	select {
	case <-rides.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("rides never loaded")
	}

	expired.Store(true)
	require.NoError(t, rides.Refresh(ctx))
	require.Eventually(t, func() bool {
		return app.Router.Location().Path == views.PathLogin &&
			app.Sessions.State().Status == domain.StatusAnonymous
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRejectedRequestFromPreviousUserKeepsNewSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	r := chi.NewRouter()
	r.Post("/api/time/sync", func(w http.ResponseWriter, req *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "server_time": 1700000000.0, "time_diff": 0})
	})
	r.Post("/api/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Username string `json:"username"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		reply(w, http.StatusOK, map[string]any{
			"success": true, "user_type": "RIDER", "token": "tok-" + body.Username,
			"user_info": map[string]any{"name": body.Username},
		})
	})
	r.Get("/api/user/{name}/rides", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "name") == "alice" {
			once.Do(func() { close(entered) })
			<-release
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "rides": []any{}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Storage = config.StorageConfig{InMemory: true}
	cfg.Gateway.BaseURL = srv.URL + "/api"
	cfg.Gateway.TimeoutSeconds = 2

	app, err := Build(cfg, logger.Nop(), io.Discard)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	_, err = app.Sessions.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := app.Gateway.ListUserRides(ctx, "alice")
		errc <- err
	}()
	<-entered

	require.NoError(t, app.Sessions.Logout(ctx))
	_, err = app.Sessions.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errc, domain.ErrUnauthenticated)
	require.NoError(t, app.Loop.Call(ctx, func() {}))

	sess, ok := app.Sessions.Current()
	require.True(t, ok)
	assert.Equal(t, "bob", sess.Username)
	assert.Equal(t, domain.StatusAuthenticated, app.Sessions.State().Status)
}
