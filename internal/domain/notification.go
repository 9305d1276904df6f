package domain

import (
	"errors"
)

// Level of a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is what the user sees after an operation settles.
type Notification struct {
	Type        Level  `json:"type"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

// Notifier receives notifications from background operations (auto-push, periodic pull).
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Success builds a success notification.
func Success(msg string) Notification {
	return Notification{Type: LevelSuccess, Message: msg}
}

// Notify converts err into the notification shown at an operation boundary.
func Notify(err error) Notification {
	var setup *AuthSetupError
	var cfgErr *ConfigError
	var apiErr *APIError
	switch {
	case errors.As(err, &setup):
		return Notification{Type: LevelError, Message: setup.Error(), Remediation: setup.Kind.Remediation()}
	case errors.As(err, &cfgErr):
		return Notification{Type: LevelError, Message: "Complete the cloud configuration in settings first: " + cfgErr.Error()}
	case errors.Is(err, ErrConfigRequired):
		return Notification{Type: LevelError, Message: "Complete the cloud configuration in settings first"}
	case errors.Is(err, ErrFormat):
		return Notification{Type: LevelError, Message: "Format error: " + err.Error()}
	case errors.Is(err, ErrConflict):
		return Notification{Type: LevelError, Message: "Sync failed: the remote file changed, pull first and retry"}
	case errors.As(err, &apiErr):
		return Notification{Type: LevelError, Message: "Sync failed: " + apiErr.Error()}
	default:
		return Notification{Type: LevelError, Message: err.Error()}
	}
}
