package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAll is called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}

// reading is the middleware chain of read-only API routes.
func reading(d deps.Deps) []Middleware {
	return []Middleware{mw.EnforceHost(d.AllowedHosts, d.Logger)}
}

// mutating is the chain of routes that change data or call a remote:
// host check, IP allow-list, then the shared rate limit.
func mutating(d deps.Deps) []Middleware {
	chain := []Middleware{
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
	}
	if d.RateLimit != nil {
		chain = append(chain, d.RateLimit)
	}
	return chain
}
