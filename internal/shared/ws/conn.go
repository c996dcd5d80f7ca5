// Package ws держит одно аутентифицированное WebSocket соединение с гейтвеем
// и переподключается с экспоненциальной задержкой.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"cabconnect/internal/shared/logger"

	"github.com/gorilla/websocket"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
)

// Backoff: задержка между попытками подключения.
type Backoff struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Factor: 1.5, Max: 30 * time.Second}
}

func (b Backoff) next(cur time.Duration) time.Duration {
	if cur <= 0 {
		return b.Initial
	}
	n := time.Duration(float64(cur) * b.Factor)
	if n > b.Max {
		n = b.Max
	}
	return n
}

// MessageHandler gets every {"type", "data"} frame. Called from the read goroutine.
type MessageHandler func(msgType string, data json.RawMessage)

type Options struct {
	URL string
	// Token returns the bearer token sent as the first frame; "" means stay offline.
	Token   func() string
	Backoff Backoff
	Dialer  *websocket.Dialer
	Logger  *logger.Logger
}

type Conn struct {
	opts    Options
	handler MessageHandler
	log     *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	wake   chan struct{}
	online bool
}

var errNoToken = errors.New("no token")

func New(opts Options, handler MessageHandler) *Conn {
	if opts.Backoff == (Backoff{}) {
		opts.Backoff = DefaultBackoff()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Conn{opts: opts, handler: handler, log: log, wake: make(chan struct{}, 1)}
}

// Online reports whether an authenticated connection is open.
func (c *Conn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Reconnect drops the current connection (if any) and retries immediately.
// Used when the token changes.
func (c *Conn) Reconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run держит соединение до отмены ctx.
func (c *Conn) Run(ctx context.Context) error {
	var delay time.Duration
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case errors.Is(err, errNoToken):
			delay = 0
			if !c.sleep(ctx, c.opts.Backoff.Initial) {
				return ctx.Err()
			}
			continue
		case err == nil:
			// the connection was up; start the backoff over
			delay = 0
		}

		delay = c.opts.Backoff.next(delay)
		c.log.Warn(logger.Entry{
			Action:     "feed_disconnected",
			Message:    errString(err),
			Additional: map[string]any{"retry_in": delay.String()},
		})
		if !c.sleep(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (c *Conn) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.wake:
		return true
	case <-t.C:
		return true
	}
}

// session dials, authenticates and reads until the connection breaks.
// A nil error means the connection was established before it dropped.
func (c *Conn) session(ctx context.Context) error {
	token := ""
	if c.opts.Token != nil {
		token = c.opts.Token()
	}
	if token == "" {
		return errNoToken
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(map[string]string{"token": token}); err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.online = true
	c.mu.Unlock()
	c.log.Info(logger.Entry{Action: "feed_connected", Message: c.opts.URL})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pinger(conn, stop)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	c.readLoop(conn)

	close(stop)
	wg.Wait()
	_ = conn.Close()

	c.mu.Lock()
	c.conn = nil
	c.online = false
	c.mu.Unlock()
	return nil
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn(logger.Entry{
					Action:  "feed_read_error",
					Message: err.Error(),
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.log.Debug(logger.Entry{
				Action:     "feed_message_ignored",
				Message:    "not a typed message",
				Additional: map[string]any{"raw": string(raw)},
			})
			continue
		}
		if c.handler != nil {
			c.handler(msg.Type, msg.Data)
		}
	}
}

func (c *Conn) pinger(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
