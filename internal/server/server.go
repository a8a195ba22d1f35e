// Package server wires harbor's HTTP surface: the anchor endpoint that
// runs the sign-in round trip, and the small session API around it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"harbor/internal/config"
	"harbor/internal/platforms"
	"harbor/internal/store"
	"harbor/internal/tokens"
)

// Server owns the echo instance and the collaborators behind the handlers.
type Server struct {
	e         *echo.Echo
	cfg       config.Config
	accounts  *store.Store
	platforms *platforms.Registry
	tokens    *tokens.Store
	httpd     *http.Server
}

// New assembles the server. Routes and middleware are fixed here; nothing
// is registered later.
func New(cfg config.Config, accounts *store.Store, registry *platforms.Registry) *Server {
	e := echo.New()

	e.Use(slogecho.New(slog.Default()))
	e.Use(middleware.Recover())
	e.Use(tokens.Middleware([]byte(cfg.CookieSecret)))

	s := &Server{
		e:         e,
		cfg:       cfg,
		accounts:  accounts,
		platforms: registry,
		tokens:    tokens.New(cfg.SecureCookies()),
		httpd: &http.Server{
			Addr:    cfg.Addr,
			Handler: e,
		},
	}

	e.GET("/api/anchor/:platform", s.handleAnchor)
	e.GET("/api/visa", s.handleVisa)
	e.GET("/api/logout", s.handleLogout)
	e.GET("/healthz", s.handleHealthz)

	return s
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("harbor listening", "addr", s.cfg.Addr, "platforms", s.platforms.Names())

	if err := s.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpd.Shutdown(ctx)
}
