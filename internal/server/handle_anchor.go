package server

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"harbor/internal/helpers"
	"harbor/internal/platforms"
	"harbor/internal/store"
	"harbor/internal/tokens"
)

const (
	stateBytes    = 10
	verifierBytes = 48
)

// handleAnchor is the one sign-in endpoint. The query parameters say which
// leg of the round trip this request is: a code completes a flow, an error
// reports the platform's refusal, and neither starts a fresh one.
func (s *Server) handleAnchor(c echo.Context) error {
	platform, ok := s.platforms.Lookup(c.Param("platform"))
	if !ok {
		return echo.NewHTTPError(404, "unknown platform")
	}

	if code := c.QueryParam("code"); code != "" {
		return s.completeAnchor(c, platform, code)
	}
	if errCode := c.QueryParam("error"); errCode != "" {
		return s.refuseAnchor(c, errCode)
	}
	return s.beginAnchor(c, platform)
}

// beginAnchor mints fresh flow state, signs it into the escort cookie, and
// sends the visitor off to the platform.
func (s *Server) beginAnchor(c echo.Context, platform platforms.Platform) error {
	state, err := helpers.GenerateToken(stateBytes)
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}

	verifier, err := helpers.GenerateToken(verifierBytes)
	if err != nil {
		return fmt.Errorf("generate code verifier: %w", err)
	}

	escort := tokens.Escort{
		State:        state,
		CodeVerifier: verifier,
		Referrer:     c.Request().Referer(),
	}
	if err := s.tokens.IssueEscort(c, escort); err != nil {
		return fmt.Errorf("issue escort: %w", err)
	}

	return c.Redirect(302, platform.AuthorizeURL(state, verifier))
}

// completeAnchor finishes a flow the platform approved. The escort is
// revoked before anything else happens, so whatever the outcome, a second
// callback finds no flow to complete.
func (s *Server) completeAnchor(c echo.Context, platform platforms.Platform, code string) error {
	escort, found := s.tokens.CheckEscort(c)
	if err := s.tokens.RevokeEscort(c); err != nil {
		return fmt.Errorf("revoke escort: %w", err)
	}

	if !found || c.QueryParam("state") != escort.State {
		return echo.NewHTTPError(401, "state mismatch")
	}

	identity, err := platform.Exchange(c.Request().Context(), code, escort.CodeVerifier)
	if err != nil {
		return fmt.Errorf("exchange with %s: %w", platform.Name(), err)
	}

	acct, err := s.accounts.LinkAccount(c.Request().Context(), store.Account{
		Platform:    identity.Platform,
		Account:     identity.Account,
		Refresh:     identity.Refresh,
		Access:      identity.Access,
		Expire:      identity.Expire,
		Handle:      identity.Handle,
		Name:        identity.Name,
		Description: identity.Description,
		Image:       identity.Image,
	})
	if err != nil {
		return err
	}

	if err := s.tokens.IssuePassport(c, tokens.Passport{Visa: acct.ID}); err != nil {
		return fmt.Errorf("issue passport: %w", err)
	}

	return c.Redirect(302, referrerOrHome(escort.Referrer))
}

// refuseAnchor finishes a flow the platform reported an error for. The
// escort dies here too.
func (s *Server) refuseAnchor(c echo.Context, errCode string) error {
	escort, _ := s.tokens.CheckEscort(c)
	if err := s.tokens.RevokeEscort(c); err != nil {
		return fmt.Errorf("revoke escort: %w", err)
	}

	switch errCode {
	case "access_denied":
		// the visitor changed their mind; back to where they started
		return c.Redirect(302, referrerOrHome(escort.Referrer))
	case "redirect_uri_mismatch", "application_suspended":
		return echo.NewHTTPError(500, fmt.Sprintf("platform reports a configuration problem: %s", errCode))
	default:
		return echo.NewHTTPError(401, fmt.Sprintf("platform refused the sign-in: %s", errCode))
	}
}

func referrerOrHome(referrer string) string {
	if referrer == "" {
		return "/"
	}
	return referrer
}
