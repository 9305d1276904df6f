package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigRequired is returned by push/both when no usable SyncConfig exists.
	ErrConfigRequired = errors.New("cloud sync is not configured")
	// ErrConflict means the remote changed between the sha fetch and the write.
	ErrConflict = errors.New("remote file changed since it was read")
	// ErrFormat marks malformed local or imported data.
	ErrFormat = errors.New("format error")
	// ErrInvalidForm marks a form missing required fields.
	ErrInvalidForm = errors.New("invalid bookmark")
	// ErrNotFound is returned when a bookmark id does not exist in the partition.
	ErrNotFound = errors.New("bookmark not found")
	// ErrNothingImported is returned when an import adds no new record.
	ErrNothingImported = errors.New("no new bookmarks found")
	// ErrNotAuthenticated is a precondition failure of the realtime backend.
	ErrNotAuthenticated = errors.New("no authenticated principal")
	// ErrNotSupported is returned for operations a backend does not offer.
	ErrNotSupported = errors.New("operation not supported by this backend")
)

// ConfigError is a configuration error detected before any network call.
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return "invalid sync config: " + e.Reason
	}
	return "invalid sync config: missing " + strings.Join(e.Missing, ", ")
}

// Is lets errors.Is(err, ErrConfigRequired) match any configuration error.
func (e *ConfigError) Is(target error) bool { return target == ErrConfigRequired }

// APIError carries a non-2xx answer from a remote provider.
type APIError struct {
	Provider Provider
	Op       string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s %s: %s (HTTP %d)", e.Provider, e.Op, msg, e.Status)
}

// AuthFailure classifies a terminal authentication setup error.
type AuthFailure int

const (
	AuthGeneric AuthFailure = iota
	AuthAnonymousDisabled
	AuthInvalidCredential
)

func (k AuthFailure) String() string {
	switch k {
	case AuthAnonymousDisabled:
		return "anonymous-auth-disabled"
	case AuthInvalidCredential:
		return "invalid-credential"
	default:
		return "generic"
	}
}

// Remediation is the user-facing fix for k.
func (k AuthFailure) Remediation() string {
	switch k {
	case AuthAnonymousDisabled:
		return "Enable the Anonymous sign-in provider in the Firebase console (Authentication > Sign-in method), then restart."
	case AuthInvalidCredential:
		return "The Firebase API key or credentials are invalid. Fix the Firebase configuration, then restart."
	default:
		return "Authentication failed. Check the Firebase project configuration, then restart."
	}
}

// AuthSetupError is terminal for the session: the operator must fix the
// external configuration and restart.
type AuthSetupError struct {
	Kind  AuthFailure
	Code  string
	Cause error
}

func (e *AuthSetupError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth setup failed (%s): %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("auth setup failed (%s): %v", e.Kind, e.Cause)
}

func (e *AuthSetupError) Unwrap() error { return e.Cause }
