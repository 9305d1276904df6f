package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// reject answers with an error notification.
func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.Notification{Type: domain.LevelError, Message: msg})
}
