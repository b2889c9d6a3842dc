package navigation

import (
	"log/slog"
	"strings"

	"dymgr/internal/logging"
)

// maxRedirects bounds redirect chains in the route table.
const maxRedirects = 4

// TokenSlot reports the persisted credential.
type TokenSlot interface {
	Load() (string, error)
}

// Decision is the outcome of resolving a navigation.
type Decision struct {
	// Target is where navigation ends up.
	Target string
	// Redirected is true when Target differs from the requested path.
	Redirected bool
	// Route is the route Target resolves to; zero for unknown paths.
	Route Route
}

// Guard decides whether a route may be entered.
type Guard struct {
	slot   TokenSlot
	logger *slog.Logger
}

// NewGuard builds a guard reading the persisted token from slot.
func NewGuard(slot TokenSlot, logger *slog.Logger) *Guard {
	return &Guard{slot: slot, logger: logging.NewComponentLogger(logger, "navigation")}
}

// Resolve follows static redirects and sends protected routes to the login
// route when no persisted token is present. Unknown paths proceed unchanged.
func (g *Guard) Resolve(path string) Decision {
	requested := normalizePath(path)
	target := requested
	route, known := Lookup(target)
	for hops := 0; known && route.Redirect != "" && hops < maxRedirects; hops++ {
		target = route.Redirect
		route, known = Lookup(target)
	}
	if known && route.RequiresAuth && !g.hasToken() {
		g.logger.Debug("redirecting to login",
			logging.String("requested", requested),
		)
		target = LoginPath
		route, _ = Lookup(LoginPath)
	}
	return Decision{Target: target, Redirected: target != requested, Route: route}
}

// Allowed reports whether path can be entered without a redirect.
func (g *Guard) Allowed(path string) bool {
	return !g.Resolve(path).Redirected
}

// hasToken is a presence check only. A slot read failure counts as absent.
func (g *Guard) hasToken() bool {
	if g == nil || g.slot == nil {
		return false
	}
	token, err := g.slot.Load()
	if err != nil {
		g.logger.Warn("credential slot unreadable", logging.Error(err))
		return false
	}
	return strings.TrimSpace(token) != ""
}
