// Package config loads harbor's runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Credentials is one platform's OAuth client registration. A platform with
// incomplete credentials is simply not offered.
type Credentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Configured reports whether the platform can be registered.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Config carries everything the service needs to run.
type Config struct {
	Addr         string `env:"HARBOR_ADDR" envDefault:":8484"`
	BaseURL      string `env:"HARBOR_BASE_URL" envDefault:"http://localhost:8484"`
	DatabasePath string `env:"HARBOR_DB" envDefault:"harbor.db"`
	CookieSecret string `env:"HARBOR_COOKIE_SECRET"`

	GitHub  Credentials `envPrefix:"HARBOR_GITHUB_"`
	Google  Credentials `envPrefix:"HARBOR_GOOGLE_"`
	Discord Credentials `envPrefix:"HARBOR_DISCORD_"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.CookieSecret == "" {
		return Config{}, fmt.Errorf("HARBOR_COOKIE_SECRET must be set")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// SecureCookies reports whether cookies should carry the Secure flag. It
// follows the scheme the service is published under.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// AnchorURL is the redirect URL registered with a platform for its
// sign-in round trip.
func (c Config) AnchorURL(platform string) string {
	return c.BaseURL + "/api/anchor/" + platform
}
