package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ErrObj is attached to ERROR entries.
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Entry is one log line. Action is a snake_case event name, e.g. session_restored.
type Entry struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Service    string         `json:"service"`
	Action     string         `json:"action"`
	Message    string         `json:"message"`
	Hostname   string         `json:"hostname"`
	RequestID  string         `json:"request_id,omitempty"`
	RideID     string         `json:"ride_id,omitempty"`
	Error      *ErrObj        `json:"error,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
}

// Options configures a Logger. Zero value logs INFO and above to stderr.
type Options struct {
	Level  string
	Pretty bool
	// Dir duplicates output into <Dir>/client.log and <Dir>/error.log.
	Dir string
	// Out overrides the destination (tests). Dir is ignored when set.
	Out io.Writer
}

type Logger struct {
	service  string
	minLevel Level
	hostname string
	pretty   bool

	mu    sync.Mutex
	out   io.Writer
	errW  io.Writer
	files []io.Closer
}

// NewLogger logs to stderr: stdout belongs to command output.
func NewLogger(service string) *Logger {
	l, _ := New(service, Options{Pretty: strings.ToLower(os.Getenv("LOG_PRETTY")) == "true"})
	return l
}

func New(service string, opts Options) (*Logger, error) {
	h, _ := os.Hostname()
	l := &Logger{
		service:  service,
		minLevel: ParseLevel(opts.Level),
		hostname: h,
		pretty:   opts.Pretty,
		out:      os.Stderr,
		errW:     os.Stderr,
	}

	if opts.Out != nil {
		l.out, l.errW = opts.Out, opts.Out
		return l, nil
	}
	if opts.Dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	infoF, err := os.OpenFile(filepath.Join(opts.Dir, "client.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open client log: %w", err)
	}
	errF, err := os.OpenFile(filepath.Join(opts.Dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		_ = infoF.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}

	// files only: the CLI shares the terminal with the user
	l.out = infoF
	l.errW = io.MultiWriter(infoF, errF)
	l.files = []io.Closer{infoF, errF}
	return l, nil
}

// Nop discards everything.
func Nop() *Logger {
	l, _ := New("nop", Options{Out: io.Discard, Level: "ERROR"})
	return l
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		_ = f.Close()
	}
	l.files = nil
}

func (l *Logger) Debug(e Entry) { l.log(LevelDebug, e, nil) }
func (l *Logger) Info(e Entry)  { l.log(LevelInfo, e, nil) }
func (l *Logger) Warn(e Entry)  { l.log(LevelWarn, e, nil) }
func (l *Logger) Error(e Entry) { l.log(LevelError, e, nil) }

func (l *Logger) Fatal(e Entry) {
	if e.Error == nil {
		e.Error = &ErrObj{Msg: e.Message, Stack: string(debug.Stack())}
	} else if e.Error.Stack == "" {
		e.Error.Stack = string(debug.Stack())
	}
	l.log(LevelError, e, nil)
	os.Exit(1)
}

// With returns a logger that merges base into every entry.
func (l *Logger) With(base map[string]any) *ContextLogger {
	return &ContextLogger{parent: l, base: base}
}

type ContextLogger struct {
	parent *Logger
	base   map[string]any
}

func (c *ContextLogger) Debug(e Entry) { c.parent.log(LevelDebug, e, c.base) }
func (c *ContextLogger) Info(e Entry)  { c.parent.log(LevelInfo, e, c.base) }
func (c *ContextLogger) Warn(e Entry)  { c.parent.log(LevelWarn, e, c.base) }
func (c *ContextLogger) Error(e Entry) { c.parent.log(LevelError, e, c.base) }

var reserved = map[string]bool{
	"timestamp": true, "level": true, "service": true, "action": true,
	"message": true, "hostname": true, "request_id": true, "ride_id": true,
}

func (l *Logger) log(level Level, e Entry, base map[string]any) {
	if l == nil || level < l.minLevel {
		return
	}

	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	e.Level = level.String()
	if e.Service == "" {
		e.Service = l.service
	}
	if e.Hostname == "" {
		e.Hostname = l.hostname
	}
	if e.RequestID == "" {
		e.RequestID, _ = base["request_id"].(string)
	}
	if e.RideID == "" {
		e.RideID, _ = base["ride_id"].(string)
	}

	if len(base) > 0 {
		if e.Additional == nil {
			e.Additional = map[string]any{}
		}
		for k, v := range base {
			if reserved[k] {
				continue
			}
			if _, ok := e.Additional[k]; !ok {
				e.Additional[k] = v
			}
		}
	}

	if level >= LevelWarn {
		if e.Additional == nil {
			e.Additional = map[string]any{}
		}
		if _, ok := e.Additional["caller"]; !ok {
			if pc, file, line, ok := runtime.Caller(2); ok {
				name := "unknown"
				if fn := runtime.FuncForPC(pc); fn != nil {
					name = fn.Name()
				}
				e.Additional["caller"] = fmt.Sprintf("%s:%d (%s)", filepath.Base(file), line, name)
			}
		}
	}

	var (
		b   []byte
		err error
	)
	if l.pretty {
		b, err = json.MarshalIndent(e, "", "  ")
	} else {
		b, err = json.Marshal(e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		fmt.Fprintf(l.errW, `{"timestamp":"%s","level":"ERROR","service":"%s","message":"failed to marshal log: %v"}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), l.service, err)
		return
	}

	w := l.out
	if level == LevelError {
		w = l.errW
	}
	_, _ = w.Write(append(b, '\n'))
}
