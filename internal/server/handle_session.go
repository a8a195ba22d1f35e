package server

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"harbor/internal/store"
)

// visaView is the public slice of an account. Platform tokens never leave
// the store.
type visaView struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// handleVisa reports which account the passport belongs to.
func (s *Server) handleVisa(c echo.Context) error {
	passport, ok := s.tokens.CheckPassport(c)
	if !ok {
		return echo.NewHTTPError(401, "no passport")
	}

	acct, err := s.accounts.GetAccount(c.Request().Context(), passport.Visa)
	if errors.Is(err, store.ErrNotFound) {
		// the account is gone, so the passport is worthless
		if err := s.tokens.RevokePassport(c); err != nil {
			return fmt.Errorf("revoke stale passport: %w", err)
		}
		return echo.NewHTTPError(401, "stale passport")
	}
	if err != nil {
		return err
	}

	return c.JSON(200, visaView{
		ID:          acct.ID,
		Platform:    acct.Platform,
		Handle:      acct.Handle,
		Name:        acct.Name,
		Description: acct.Description,
		Image:       acct.Image,
	})
}

// handleLogout drops the passport and sends the visitor back where they
// came from.
func (s *Server) handleLogout(c echo.Context) error {
	if err := s.tokens.RevokePassport(c); err != nil {
		return fmt.Errorf("revoke passport: %w", err)
	}

	return c.Redirect(302, referrerOrHome(c.Request().Referer()))
}

// handleHealthz reports whether the service can reach its database.
func (s *Server) handleHealthz(c echo.Context) error {
	if err := s.accounts.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(503, "database unreachable")
	}

	return c.String(200, "ok")
}
