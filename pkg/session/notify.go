package session

// Level is the severity of a user notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier receives user notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

type discard struct{}

func (discard) Notify(Notification) {}
