package out

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows short user-facing messages (toasts in a browser, lines on the terminal).
type Notifier interface {
	Notify(level Level, message string)
}
