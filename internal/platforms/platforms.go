// Package platforms holds the closed set of OAuth platforms a visitor can
// sign in through. Each platform knows how to build its authorization URL
// and how to trade an authorization code for the visitor's identity.
package platforms

import (
	"context"
	"sort"
	"time"

	"harbor/internal/config"
)

// Identity is the normalized outcome of a completed code exchange: the
// platform-side identifiers, the grant's tokens, and the public profile
// fields worth keeping.
type Identity struct {
	Platform    string
	Account     string
	Refresh     string
	Access      string
	Expire      time.Time
	Handle      string
	Name        string
	Description string
	Image       string
}

// Platform is one supported OAuth platform.
type Platform interface {
	// Name identifies the platform in anchor URLs and stored accounts.
	Name() string

	// AuthorizeURL builds the platform's authorization URL carrying the
	// CSRF state and the S256 challenge derived from verifier.
	AuthorizeURL(state, verifier string) string

	// Exchange trades the authorization code, together with the PKCE
	// verifier issued alongside it, for the visitor's identity.
	Exchange(ctx context.Context, code, verifier string) (*Identity, error)
}

// Registry is the platform set, keyed by name. Unknown names are rejected
// at the boundary, before any flow state exists.
type Registry struct {
	byName map[string]Platform
}

// NewRegistry builds a registry from the given platforms.
func NewRegistry(platforms ...Platform) *Registry {
	r := &Registry{byName: make(map[string]Platform, len(platforms))}
	for _, p := range platforms {
		r.byName[p.Name()] = p
	}
	return r
}

// FromConfig registers every platform whose credentials are present.
func FromConfig(cfg config.Config) *Registry {
	var ps []Platform
	if cfg.GitHub.Configured() {
		ps = append(ps, NewGitHub(cfg.GitHub, cfg.AnchorURL("github")))
	}
	if cfg.Google.Configured() {
		ps = append(ps, NewGoogle(cfg.Google, cfg.AnchorURL("google")))
	}
	if cfg.Discord.Configured() {
		ps = append(ps, NewDiscord(cfg.Discord, cfg.AnchorURL("discord")))
	}
	return NewRegistry(ps...)
}

// Lookup returns the named platform.
func (r *Registry) Lookup(name string) (Platform, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names lists the registered platforms in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
