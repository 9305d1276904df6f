package domain

import "fmt"

// Direction of a blob sync.
type Direction string

const (
	Pull Direction = "pull"
	Push Direction = "push"
	Both Direction = "both"
)

// ParseDirection validates s. An empty string selects Both.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Both:
		return Both, nil
	case Pull:
		return Pull, nil
	case Push:
		return Push, nil
	default:
		return "", fmt.Errorf("unknown sync direction %q (want pull, push or both)", s)
	}
}

// Status is the observable state of a bookmark service.
type Status struct {
	Backend   string    `json:"backend"`
	Partition Partition `json:"partition"`
	Count     int       `json:"count"`

	// Blob variant. Syncing is advisory, concurrent syncs are not serialized.
	Syncing  bool          `json:"syncing"`
	LastSync *Notification `json:"lastSync,omitempty"`
	Provider Provider      `json:"provider,omitempty"`

	// Realtime variant.
	State     string `json:"state,omitempty"`
	Principal string `json:"principal,omitempty"`
	LastError string `json:"lastError,omitempty"`
}
