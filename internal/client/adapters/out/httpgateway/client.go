// Package httpgateway talks to the CabConnect API gateway over HTTP/JSON.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
	"cabconnect/internal/shared/metrics"
	"cabconnect/internal/shared/utils"
)

const maxBody = 1 << 20

// TokenSource returns the stored bearer token, or "".
type TokenSource interface {
	Token() string
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	HTTPClient *http.Client
	Tokens     TokenSource
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

type Client struct {
	base    string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	reads   singleflight.Group
	metrics *metrics.Metrics
	log     *logger.Logger

	onUnauthorized atomic.Pointer[unauthorizedHook]
}

type unauthorizedHook struct {
	generation func() uint64
	expire     func(generation uint64)
}

var _ out.Gateway = (*Client)(nil)

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		tokens:  opts.Tokens,
		metrics: opts.Metrics,
		log:     log,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// OnUnauthorized sets the hook fired when a token-bearing call gets 401.
// generation is sampled before the token is read and handed back to expire,
// so the rejection can be matched to the session that sent the request.
func (c *Client) OnUnauthorized(generation func() uint64, expire func(generation uint64)) {
	c.onUnauthorized.Store(&unauthorizedHook{generation: generation, expire: expire})
}

type call struct {
	op     string
	method string
	path   string
	body   any
	// public calls (login, register) treat 401 as a refusal, not an expiry.
	public bool
}

func (c *Client) Login(ctx context.Context, username, password string) (*out.LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, call{op: "login", method: http.MethodPost, path: "/login", body: loginRequest{username, password}, public: true}, &resp)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(resp.UserType)
	if err != nil {
		return nil, &domain.DomainError{Op: "login", Reason: err.Error(), Err: domain.ErrUnknownRole}
	}
	u := resp.UserInfo
	return &out.LoginResult{
		Role: role,
		Profile: domain.Profile{
			Name:            u.Name,
			Email:           u.Email,
			Phone:           u.Phone,
			Rating:          u.Rating,
			CurrentLocation: u.CurrentLocation,
			IsAvailable:     u.IsAvailable,
		},
		Token:   resp.Token,
		Message: resp.Message,
	}, nil
}

func (c *Client) Register(ctx context.Context, in out.RegisterInput) (string, error) {
	var resp envelope
	err := c.do(ctx, call{op: "register", method: http.MethodPost, path: "/register", public: true, body: registerRequest{
		Username: in.Username,
		Password: in.Password,
		UserType: string(in.Role),
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
	}}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) BookRide(ctx context.Context, in out.BookRideInput) (*domain.Booking, error) {
	var resp bookResponse
	err := c.do(ctx, call{op: "book_ride", method: http.MethodPost, path: "/book_cab", body: bookRequest{
		Username:    in.Username,
		Pickup:      in.Pickup,
		Destination: in.Destination,
	}}, &resp)
	if err != nil {
		return nil, err
	}

	dto := resp.rideDTO
	if resp.Ride != nil {
		dto = *resp.Ride
	}
	ride := dto.toDomain()
	if ride.Pickup == "" {
		ride.Pickup, ride.Destination = in.Pickup, in.Destination
	}
	if ride.RiderName == "" {
		ride.RiderName = in.Username
	}
	if ride.Status == "" {
		ride.Status = domain.StatusRequested
	}
	return &domain.Booking{Ride: ride, Message: resp.Message}, nil
}

func (c *Client) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	var resp rideResponse
	if err := c.do(ctx, call{op: "get_ride", method: http.MethodGet, path: "/ride/" + url.PathEscape(rideID)}, &resp); err != nil {
		return nil, err
	}
	dto := resp.RideInfo
	if dto == nil {
		dto = resp.Ride
	}
	if dto == nil {
		return nil, &domain.DomainError{Op: "get_ride", Reason: "Ride not found", Err: domain.ErrRideNotFound}
	}
	ride := dto.toDomain()
	return &ride, nil
}

func (c *Client) CancelRide(ctx context.Context, rideID string) (*domain.Cancellation, error) {
	var resp cancelResponse
	if err := c.do(ctx, call{op: "cancel_ride", method: http.MethodPost, path: "/ride/" + url.PathEscape(rideID) + "/cancel"}, &resp); err != nil {
		return nil, err
	}
	res := &domain.Cancellation{RideID: rideID, Message: resp.Message}
	if resp.RatingPenalty != nil {
		res.RatingPenalty = *resp.RatingPenalty
		res.PenaltyReported = true
	}
	return res, nil
}

func (c *Client) AcceptRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	var resp rideResponse
	if err := c.do(ctx, call{op: "accept_ride", method: http.MethodPost, path: "/ride/" + url.PathEscape(rideID) + "/accept"}, &resp); err != nil {
		return nil, err
	}
	dto := resp.RideInfo
	if dto == nil {
		dto = resp.Ride
	}
	if dto == nil {
		return nil, nil
	}
	ride := dto.toDomain()
	return &ride, nil
}

func (c *Client) UpdateRideStatus(ctx context.Context, rideID string, status domain.RideStatus) (string, error) {
	var resp envelope
	err := c.do(ctx, call{
		op:     "update_ride_status",
		method: http.MethodPut,
		path:   "/ride/" + url.PathEscape(rideID) + "/status",
		body:   statusRequest{Status: string(status)},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) SetAvailability(ctx context.Context, a domain.Availability) error {
	return c.do(ctx, call{op: "set_availability", method: http.MethodPost, path: "/driver/availability", body: availabilityRequest{
		DriverName:  a.DriverName,
		IsAvailable: a.Available,
		Location:    a.Location,
	}}, nil)
}

func (c *Client) ListAvailableDrivers(ctx context.Context, location string) ([]domain.Driver, error) {
	var resp driversResponse
	path := "/cabs?location=" + url.QueryEscape(location)
	if err := c.do(ctx, call{op: "list_drivers", method: http.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	drivers := make([]domain.Driver, 0, len(resp.AvailableDrivers))
	for _, d := range resp.AvailableDrivers {
		drivers = append(drivers, domain.Driver{Username: d.Username, Name: d.Name, Location: d.Location, Rating: d.Rating})
	}
	return drivers, nil
}

func (c *Client) ListUserRides(ctx context.Context, username string) ([]domain.Ride, error) {
	return c.listRides(ctx, "list_user_rides", "/user/"+url.PathEscape(username)+"/rides")
}

func (c *Client) ListUnassignedRides(ctx context.Context) ([]domain.Ride, error) {
	return c.listRides(ctx, "list_unassigned_rides", "/rides/available")
}

func (c *Client) ListActiveRides(ctx context.Context) ([]domain.Ride, error) {
	var resp activeRidesResponse
	if err := c.do(ctx, call{op: "list_active_rides", method: http.MethodGet, path: "/rides/active"}, &resp); err != nil {
		return nil, err
	}
	rides := make([]domain.Ride, 0, len(resp.ActiveRides))
	for _, r := range resp.ActiveRides {
		rides = append(rides, r.toDomain())
	}
	return rides, nil
}

func (c *Client) listRides(ctx context.Context, op, path string) ([]domain.Ride, error) {
	var resp ridesResponse
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	rides := make([]domain.Ride, 0, len(resp.Rides))
	for _, r := range resp.Rides {
		rides = append(rides, r.toDomain())
	}
	return rides, nil
}

func (c *Client) GetSystemSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var resp statsResponse
	if err := c.do(ctx, call{op: "system_stats", method: http.MethodGet, path: "/stats"}, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return nil, &domain.TransportError{Op: "system_stats", Err: errors.New("response has no stats")}
	}
	snap := resp.Stats.toDomain()
	return &snap, nil
}

// GetBalancerStats reads the load balancer's view of the backends. The
// payload carries no success flag.
func (c *Client) GetBalancerStats(ctx context.Context) (*domain.BalancerStats, error) {
	var resp balancerResponse
	if err := c.do(ctx, call{op: "balancer_stats", method: http.MethodGet, path: "/load_balancer/stats"}, &resp); err != nil {
		return nil, err
	}
	stats := resp.toDomain()
	return &stats, nil
}

func (c *Client) GetServerClock(ctx context.Context) (*domain.ServerClock, error) {
	var resp serverTimeResponse
	if err := c.do(ctx, call{op: "server_time", method: http.MethodGet, path: "/time"}, &resp); err != nil {
		return nil, err
	}
	return &domain.ServerClock{
		UTC:          resp.UTCTime.Time,
		LamportClock: resp.LamportTime,
		VectorClock:  resp.VectorClock,
	}, nil
}

func (c *Client) SyncTime(ctx context.Context, clientTime time.Time) (*domain.TimeSync, error) {
	var resp timeSyncResponse
	req := timeSyncRequest{ClientTime: float64(clientTime.UnixNano()) / 1e9}
	if err := c.do(ctx, call{op: "time_sync", method: http.MethodPost, path: "/time/sync", body: req}, &resp); err != nil {
		return nil, err
	}
	return &domain.TimeSync{
		ServerTime: resp.ServerTime.Time,
		Offset:     time.Duration(float64(resp.TimeDiff) * float64(time.Second)),
	}, nil
}

func (c *Client) Health(ctx context.Context) (*domain.Health, error) {
	var resp healthResponse
	if err := c.do(ctx, call{op: "health", method: http.MethodGet, path: "/health", public: true}, &resp); err != nil {
		return nil, err
	}
	return &domain.Health{
		Status:   resp.Status,
		ServerID: resp.BackendStatus.ServerID,
		IsLeader: resp.BackendStatus.IsLeader,
	}, nil
}

// do performs one call and decodes the body into dst. Identical concurrent
// GETs share one round trip.
func (c *Client) do(ctx context.Context, cl call, dst any) error {
	var (
		raw []byte
		err error
	)
	if cl.method == http.MethodGet {
		key := cl.path + "\x00" + c.token(cl)
		var v any
		v, err, _ = c.reads.Do(key, func() (any, error) { return c.roundTrip(ctx, cl) })
		raw, _ = v.([]byte)
	} else {
		raw, err = c.roundTrip(ctx, cl)
	}
	if err != nil {
		return err
	}
	if dst == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &domain.TransportError{Op: cl.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) token(cl call) string {
	if cl.public || c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) roundTrip(ctx context.Context, cl call) ([]byte, error) {
	start := time.Now()
	raw, result, err := c.send(ctx, cl)
	c.metrics.GatewayRequest(cl.op, result, time.Since(start))
	return raw, err
}

func (c *Client) send(ctx context.Context, cl call) ([]byte, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "transport", &domain.TransportError{Op: cl.op, Err: err}
		}
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, "transport", fmt.Errorf("%s: marshal request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.base+cl.path, body)
	if err != nil {
		return nil, "transport", &domain.TransportError{Op: cl.op, Err: err}
	}
	reqID := utils.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hook := c.onUnauthorized.Load()
	var gen uint64
	if hook != nil && !cl.public {
		gen = hook.generation()
	}
	tok := c.token(cl)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(logger.Entry{
			Action:     "gateway_unreachable",
			Message:    err.Error(),
			RequestID:  reqID,
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"operation": cl.op},
		})
		return nil, "transport", &domain.TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "transport", &domain.TransportError{Op: cl.op, Status: resp.StatusCode, Err: err}
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	c.log.Debug(logger.Entry{
		Action:     "gateway_response",
		Message:    cl.method + " " + cl.path,
		RequestID:  reqID,
		Additional: map[string]any{"operation": cl.op, "status": resp.StatusCode},
	})

	switch {
	case resp.StatusCode == http.StatusUnauthorized && !cl.public:
		c.log.Warn(logger.Entry{
			Action:     "gateway_unauthorized",
			Message:    "token rejected, ending session",
			RequestID:  reqID,
			Additional: map[string]any{"operation": cl.op, "generation": gen},
		})
		if hook != nil && tok != "" {
			hook.expire(gen)
		}
		return nil, "unauthorized", fmt.Errorf("%s: %w", cl.op, domain.ErrUnauthenticated)

	case resp.StatusCode >= http.StatusInternalServerError:
		msg := env.reason()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, "transport", &domain.TransportError{Op: cl.op, Status: resp.StatusCode, Err: errors.New(msg)}

	case resp.StatusCode >= http.StatusBadRequest:
		msg := env.reason()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, "domain", domain.NewDomainError(cl.op, msg)

	case env.Success != nil && !*env.Success:
		return nil, "domain", domain.NewDomainError(cl.op, env.reason())
	}
	return raw, "ok", nil
}
