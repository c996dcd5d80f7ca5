package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"cabconnect/internal/client/application/ports/out"
	"cabconnect/internal/shared/logger"
	"cabconnect/internal/shared/metrics"
)

var marks = map[out.Level]string{
	out.LevelInfo:    "i",
	out.LevelSuccess: "✓",
	out.LevelWarning: "!",
	out.LevelError:   "✗",
}

// consoleNotifier печатает уведомления строками в терминал.
type consoleNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewConsoleNotifier(w io.Writer, m *metrics.Metrics, log *logger.Logger) out.Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &consoleNotifier{w: w, metrics: m, log: log}
}

func (n *consoleNotifier) Notify(level out.Level, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	mark, ok := marks[level]
	if !ok {
		mark = marks[out.LevelInfo]
	}

	n.mu.Lock()
	_, err := fmt.Fprintf(n.w, "[%s] %s\n", mark, message)
	n.mu.Unlock()

	n.metrics.Notification(string(level))
	if err != nil {
		n.log.Warn(logger.Entry{
			Action:  "notify_write_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}
	n.log.Debug(logger.Entry{
		Action:     "user_notified",
		Message:    message,
		Additional: map[string]any{"level": string(level)},
	})
}
