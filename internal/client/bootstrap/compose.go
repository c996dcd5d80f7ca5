// ============================================================================
// BOOTSTRAP (Compose Root)
// ============================================================================
//
// Здесь собирается весь клиент CabConnect:
// 1. Инфраструктура: badger (сессия), метрики, event loop
// 2. Адаптеры: HTTP гейтвей, WebSocket лента поездок, консольные уведомления
// 3. Сессия, use cases, guard и роутер с views
//
//   Badger ─► SessionSlots ─► session.Store ◄── Gateway 401 hook
//                                  │
//                                  ▼
//                    Router ─► Views ─► Schedulers ─► Gateway
//
// ============================================================================

package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"

	"cabconnect/internal/client/adapters/in/in_ws"
	"cabconnect/internal/client/adapters/out/httpgateway"
	"cabconnect/internal/client/adapters/out/notify"
	"cabconnect/internal/client/application/guard"
	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/application/session"
	"cabconnect/internal/client/application/usecase"
	"cabconnect/internal/client/application/views"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/eventloop"
	"cabconnect/internal/shared/logger"
	"cabconnect/internal/shared/metrics"
	"cabconnect/internal/shared/storage"
	"cabconnect/internal/shared/ws"
)

// App is a fully wired client. Build it, Start it, Close it.
type App struct {
	Config   config.Config
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Loop     *eventloop.Loop
	Gateway  *httpgateway.Client
	Sessions *session.Store
	Router   *views.Router
	Notifier out.Notifier
	// Feed is nil when gateway.feed_url is empty.
	Feed *in_ws.RideFeed

	db       *badger.DB
	timeSync *scheduler.Scheduler[*domain.TimeSync]
	unsub    func()
	cancel   context.CancelFunc
}

// Build creates every component. Nothing runs until Start.
func Build(cfg config.Config, log *logger.Logger, console io.Writer) (*App, error) {
	// ========================================================================
	// СЛОЙ 1: ИНФРАСТРУКТУРА
	// ========================================================================
	db, err := storage.Open(cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	slots := storage.NewSessionSlots(db)
	m := metrics.New()
	loop := eventloop.New(log)

	// ========================================================================
	// СЛОЙ 2: АДАПТЕРЫ
	// ========================================================================
	gw := httpgateway.New(httpgateway.Options{
		BaseURL:   cfg.Gateway.BaseURL,
		Timeout:   cfg.Gateway.Timeout(),
		RateLimit: cfg.Gateway.RateLimit,
		Burst:     cfg.Gateway.Burst,
		Tokens:    slots,
		Metrics:   m,
		Logger:    log,
	})
	notifier := notify.NewConsoleNotifier(console, m, log)

	var feed *in_ws.RideFeed
	var events in.RideEvents
	if cfg.Gateway.FeedURL != "" {
		feed = in_ws.NewRideFeed(ws.Options{
			URL:     cfg.Gateway.FeedURL,
			Token:   slots.Token,
			Backoff: ws.DefaultBackoff(),
			Logger:  log,
		})
		events = feed
	}

	// ========================================================================
	// СЛОЙ 3: СЕССИЯ И USE CASES
	// ========================================================================
	store := session.NewStore(loop, gw, slots, log)
	// 401 на любом защищённом вызове завершает сессию
	gw.OnUnauthorized(store.Generation, store.ExpireGeneration)

	deps := views.Deps{
		Loop:        loop,
		Sessions:    store,
		Gateway:     gw,
		Notifier:    notifier,
		Log:         log,
		Sync:        cfg.Sync,
		CallTimeout: cfg.Gateway.Timeout(),
		NewTicker:   scheduler.RealTicker,
		Observer:    m,
		Feed:        events,

		QuoteRide:        usecase.NewQuoteRideService(gw, store, log),
		BookRide:         usecase.NewBookRideService(gw, store, log),
		CancelRide:       usecase.NewCancelRideService(gw, store, log),
		AcceptRide:       usecase.NewAcceptRideService(gw, store, log),
		UpdateRideStatus: usecase.NewUpdateRideStatusService(gw, store, log),
		SetAvailability:  usecase.NewSetAvailabilityService(gw, store, log),
	}

	// ========================================================================
	// СЛОЙ 4: РОУТЕР
	// ========================================================================
	router := views.NewRouter(deps, guard.New(notifier))

	return &App{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Loop:     loop,
		Gateway:  gw,
		Sessions: store,
		Router:   router,
		Notifier: notifier,
		Feed:     feed,
		db:       db,
		timeSync: views.NewTimeSync(deps),
	}, nil
}

// Start runs the event loop, restores the stored session and starts the
// application-wide time sync.
func (a *App) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go a.Loop.Run(loopCtx)

	a.Router.Start()
	if a.Feed != nil {
		a.unsub = a.Sessions.Subscribe(func(domain.SessionChange) { a.Feed.Reconnect() })
	}

	if err := a.Sessions.Restore(ctx); err != nil {
		return err
	}
	err := a.Loop.Call(ctx, a.timeSync.Start)
	if err == nil {
		a.Log.Info(logger.Entry{
			Action:  "client_started",
			Message: "cabconnect client ready",
			Additional: map[string]any{
				"gateway": a.Config.Gateway.BaseURL,
				"session": a.Sessions.State().Status.String(),
			},
		})
	}
	return err
}

// Run blocks until ctx ends, serving the ride feed and /metrics when configured.
func (a *App) Run(ctx context.Context, metricsAddr string) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.Feed != nil {
		g.Go(func() error {
			if err := a.Feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: a.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.Log.Info(logger.Entry{Action: "metrics_listening", Message: metricsAddr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// Close stops views and schedulers, then the loop, then storage.
func (a *App) Close() {
	if a.cancel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.Loop.Call(ctx, func() {
			a.timeSync.Stop()
			a.Router.Close()
		})
		cancel()
		if a.unsub != nil {
			a.unsub()
		}
		a.cancel()
		<-a.Loop.Done()
	}
	storage.Close(a.db, a.Log)
	a.Log.Info(logger.Entry{Action: "client_stopped", Message: "cabconnect client stopped"})
}
