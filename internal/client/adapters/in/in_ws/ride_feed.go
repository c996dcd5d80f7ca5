package in_ws

import (
	"context"
	"encoding/json"
	"sync"

	"cabconnect/internal/client/application/ports/in"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
	"cabconnect/internal/shared/ws"
)

// RideFeed раздаёт push-сообщения гейтвея о поездках подписчикам.
type RideFeed struct {
	conn *ws.Conn
	log  *logger.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.RideEvent)
}

var _ in.RideEvents = (*RideFeed)(nil)

type rideMessage struct {
	RideID string `json:"ride_id"`
	Status string `json:"status"`
}

// rideMessageTypes are the frames that concern rides; the rest are ignored.
var rideMessageTypes = map[string]bool{
	"ride_status_update": true,
	"ride_matched":       true,
	"ride_requested":     true,
	"ride_accepted":      true,
	"ride_cancelled":     true,
	"ride_completed":     true,
}

func NewRideFeed(opts ws.Options) *RideFeed {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	f := &RideFeed{log: log, subs: map[int]func(domain.RideEvent){}}
	f.conn = ws.New(opts, f.handle)
	return f
}

func (f *RideFeed) Run(ctx context.Context) error { return f.conn.Run(ctx) }

// Reconnect is called when the session changes so the feed picks up the new token.
func (f *RideFeed) Reconnect() { f.conn.Reconnect() }

func (f *RideFeed) Online() bool { return f.conn.Online() }

func (f *RideFeed) Subscribe(fn func(domain.RideEvent)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *RideFeed) handle(msgType string, data json.RawMessage) {
	if !rideMessageTypes[msgType] {
		if msgType != "pong" {
			f.log.Debug(logger.Entry{Action: "feed_unknown_message_type", Message: msgType})
		}
		return
	}

	var msg rideMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			f.log.Warn(logger.Entry{
				Action:  "feed_parse_message_error",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
				Additional: map[string]any{
					"msg_type": msgType,
				},
			})
			return
		}
	}

	ev := domain.RideEvent{Type: msgType, RideID: msg.RideID}
	if st, err := domain.ParseRideStatus(msg.Status); err == nil {
		ev.Status = st
	}
	f.log.Debug(logger.Entry{Action: "ride_event_received", Message: msgType, RideID: msg.RideID})

	f.mu.Lock()
	subs := make([]func(domain.RideEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
