package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/hajimi/internal/logger"
	"github.com/MrSnakeDoc/hajimi/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the listed IPs and CIDRs. An empty
// list lets everything through. trustProxy reads the client address from
// forwarding headers.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Debug("client address rejected",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
