package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"harbor/internal/config"
	"harbor/internal/helpers"
	"harbor/internal/platforms"
	"harbor/internal/store"
	"harbor/internal/tokens"
)

const testCookieSecret = "0123456789abcdef0123456789abcdef"

// fakePlatform stands in for a real OAuth platform in handler tests.
type fakePlatform struct {
	name        string
	identity    platforms.Identity
	exchangeErr error

	states    []string
	verifiers []string

	gotCode     string
	gotVerifier string
}

func (f *fakePlatform) Name() string {
	return f.name
}

func (f *fakePlatform) AuthorizeURL(state, verifier string) string {
	f.states = append(f.states, state)
	f.verifiers = append(f.verifiers, verifier)

	v := url.Values{
		"state":          {state},
		"code_challenge": {helpers.GenerateCodeChallenge(verifier)},
	}
	return "https://auth." + f.name + ".test/authorize?" + v.Encode()
}

func (f *fakePlatform) Exchange(ctx context.Context, code, verifier string) (*platforms.Identity, error) {
	f.gotCode, f.gotVerifier = code, verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}

	id := f.identity
	id.Platform = f.name
	return &id, nil
}

func newTestServer(t *testing.T, ps ...platforms.Platform) *Server {
	t.Helper()

	accounts, err := store.Open(filepath.Join(t.TempDir(), "harbor.db"))
	require.NoError(t, err)

	cfg := config.Config{
		Addr:         ":0",
		BaseURL:      "http://harbor.test",
		CookieSecret: testCookieSecret,
	}

	return New(cfg, accounts, platforms.NewRegistry(ps...))
}

func doGet(s *Server, target, referrer string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// initiate starts a flow and returns the escort cookie plus the state the
// platform was handed.
func initiate(t *testing.T, s *Server, fake *fakePlatform, referrer string) (*http.Cookie, string) {
	t.Helper()

	rec := doGet(s, "/api/anchor/"+fake.name, referrer)
	require.Equal(t, 302, rec.Code)

	escort := responseCookie(rec, tokens.EscortName)
	require.NotNil(t, escort)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return escort, loc.Query().Get("state")
}

// mintPassport signs an arbitrary visa under the test secret, outside the
// server under test.
func mintPassport(t *testing.T, visa string) *http.Cookie {
	t.Helper()

	e := echo.New()
	e.Use(tokens.Middleware([]byte(testCookieSecret)))
	st := tokens.New(false)
	e.GET("/mint", func(c echo.Context) error {
		return st.IssuePassport(c, tokens.Passport{Visa: visa})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mint", nil))

	passport := responseCookie(rec, tokens.PassportName)
	require.NotNil(t, passport)
	return passport
}
