package views

import (
	"context"
	"time"

	"cabconnect/internal/client/application/scheduler"
	"cabconnect/internal/client/domain"
	"cabconnect/internal/shared/logger"
)

// NewTimeSync builds the application-wide clock sync. Failures are logged by
// the scheduler and otherwise ignored.
func NewTimeSync(d Deps) *scheduler.Scheduler[*domain.TimeSync] {
	op := func(ctx context.Context) (*domain.TimeSync, error) {
		return d.Gateway.SyncTime(ctx, time.Now())
	}
	onResult := func(ts *domain.TimeSync) {
		d.Log.Debug(logger.Entry{
			Action:  "time_synced",
			Message: "time synchronized with server",
			Additional: map[string]any{
				"server_time": ts.ServerTime.UTC().Format(time.RFC3339Nano),
				"offset_ms":   ts.Offset.Milliseconds(),
			},
		})
	}
	return scheduler.New(d.Loop, op, onResult, nil, d.schedOptions("time_sync", d.Sync.TimeSync()))
}
