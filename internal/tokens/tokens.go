// Package tokens issues, checks, and revokes the signed cookies that carry
// the sign-in flow. The escort rides along during the redirect round trip
// to the platform; the passport identifies the visitor afterward. Both live
// only in the visitor's browser, signed so they cannot be forged or
// tampered with. Nothing is kept server side.
package tokens

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	// EscortName is the cookie that escorts a visitor through one
	// redirect round trip.
	EscortName = "escort"

	// PassportName is the cookie that marks a signed-in visitor.
	PassportName = "passport"

	// EscortTTL bounds how long a round trip to a platform may take.
	EscortTTL = 5 * time.Minute
)

// payload keys inside the signed cookies
const (
	keyState        = "state"
	keyCodeVerifier = "code_verifier"
	keyReferrer     = "referrer"
	keyVisa         = "visa"
)

// Escort is the mid-flight payload: the CSRF state the platform must echo
// back, the PKCE verifier for the code exchange, and the page the visitor
// started from.
type Escort struct {
	State        string
	CodeVerifier string
	Referrer     string
}

// Passport is the post-sign-in payload. Visa is the local account id.
type Passport struct {
	Visa string
}

// Store reads and writes the signed cookies through the gorilla cookie
// store mounted by Middleware.
type Store struct {
	secure bool
}

// New returns a Store. secure controls the cookies' Secure flag and should
// be true whenever the service is served over https.
func New(secure bool) *Store {
	return &Store{secure: secure}
}

// Middleware mounts the cookie store every token operation goes through.
// secret signs the cookies; rotating it invalidates everything in flight.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return session.Middleware(sessions.NewCookieStore(secret))
}

// Issue replaces the named cookie with a signed copy of payload. A ttl of
// zero makes it a browser-session cookie.
func (s *Store) Issue(c echo.Context, name string, payload map[string]string, ttl time.Duration) error {
	sess, err := session.Get(name, c)
	if sess == nil {
		return fmt.Errorf("get %s cookie: %w", name, err)
	}

	// a cookie that failed to decode is simply replaced
	sess.Options = s.options(int(ttl / time.Second))
	sess.Values = map[interface{}]interface{}{}
	for k, v := range payload {
		sess.Values[k] = v
	}

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("save %s cookie: %w", name, err)
	}

	return nil
}

// Check returns the named cookie's payload. Absent, expired, malformed,
// and badly signed cookies all look the same from here: ok is false.
func (s *Store) Check(c echo.Context, name string) (map[string]string, bool) {
	sess, err := session.Get(name, c)
	if err != nil || sess.IsNew {
		return nil, false
	}

	payload := make(map[string]string, len(sess.Values))
	for k, v := range sess.Values {
		key, kok := k.(string)
		val, vok := v.(string)
		if kok && vok {
			payload[key] = val
		}
	}

	return payload, true
}

// Revoke tells the browser to drop the named cookie immediately.
func (s *Store) Revoke(c echo.Context, name string) error {
	sess, err := session.Get(name, c)
	if sess == nil {
		return fmt.Errorf("get %s cookie: %w", name, err)
	}

	sess.Options = s.options(-1)
	sess.Values = map[interface{}]interface{}{}

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("expire %s cookie: %w", name, err)
	}

	return nil
}

// IssueEscort signs flow state into the escort cookie for EscortTTL.
func (s *Store) IssueEscort(c echo.Context, e Escort) error {
	return s.Issue(c, EscortName, map[string]string{
		keyState:        e.State,
		keyCodeVerifier: e.CodeVerifier,
		keyReferrer:     e.Referrer,
	}, EscortTTL)
}

// CheckEscort reads the escort cookie. It does not revoke it; callbacks
// revoke separately so the cookie dies in every branch.
func (s *Store) CheckEscort(c echo.Context) (Escort, bool) {
	payload, ok := s.Check(c, EscortName)
	if !ok {
		return Escort{}, false
	}

	return Escort{
		State:        payload[keyState],
		CodeVerifier: payload[keyCodeVerifier],
		Referrer:     payload[keyReferrer],
	}, true
}

// RevokeEscort drops the escort cookie.
func (s *Store) RevokeEscort(c echo.Context) error {
	return s.Revoke(c, EscortName)
}

// IssuePassport signs the visa into a browser-session passport cookie.
func (s *Store) IssuePassport(c echo.Context, p Passport) error {
	return s.Issue(c, PassportName, map[string]string{keyVisa: p.Visa}, 0)
}

// CheckPassport reads the passport cookie.
func (s *Store) CheckPassport(c echo.Context) (Passport, bool) {
	payload, ok := s.Check(c, PassportName)
	if !ok || payload[keyVisa] == "" {
		return Passport{}, false
	}

	return Passport{Visa: payload[keyVisa]}, true
}

// RevokePassport drops the passport cookie, signing the visitor out.
func (s *Store) RevokePassport(c echo.Context) error {
	return s.Revoke(c, PassportName)
}

func (s *Store) options(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
