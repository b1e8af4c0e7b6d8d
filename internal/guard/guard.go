// Package guard decides whether a view may be shown for the current session.
package guard

import (
	"context"
	"strings"
)

// Routes the guard knows about.
const (
	PathLanding   = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
)

// Authenticator reports whether an access token is held.
// session.Manager implements it.
type Authenticator interface {
	Authenticated(ctx context.Context) bool
}

// Rules maps path prefixes to access requirements.
type Rules struct {
	// Protected prefixes require a token; others are sent to LoginPath.
	Protected []string
	// GuestOnly prefixes are for signed-out users; others are sent to HomePath.
	GuestOnly []string
	LoginPath string
	HomePath  string
}

// DefaultRules protects the dashboard and keeps signed-in users off the login form.
func DefaultRules() Rules {
	return Rules{
		Protected: []string{PathDashboard},
		GuestOnly: []string{PathLogin},
		LoginPath: PathLogin,
		HomePath:  PathDashboard,
	}
}

// Guard applies Rules using the presence of an access token only. Token
// validity is left to the API client.
type Guard struct {
	rules Rules
	auth  Authenticator
}

// New returns a guard backed by auth.
func New(auth Authenticator, rules Rules) *Guard {
	return &Guard{rules: rules, auth: auth}
}

// Resolve returns the path to show when navigating to path.
func (g *Guard) Resolve(ctx context.Context, path string) string {
	return g.rules.Decide(path, g.auth.Authenticated(ctx))
}

// Decide returns path when access is allowed, otherwise the redirect target.
func (r Rules) Decide(path string, authenticated bool) string {
	if !authenticated && matchAny(path, r.Protected) {
		return r.LoginPath
	}
	if authenticated && matchAny(path, r.GuestOnly) {
		return r.HomePath
	}
	return path
}

// matchAny matches whole path segments, so /dashboards is not under /dashboard.
func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimRight(p, "/")+"/") {
			return true
		}
	}
	return false
}
