package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"harbor/internal/config"
	"harbor/internal/helpers"
)

const githubAPIBase = "https://api.github.com"

// GitHub signs visitors in through a GitHub OAuth app. The numeric user id
// is the account key; login changes must not mint a second account.
type GitHub struct {
	oauth oauth2.Config
	api   string
}

// NewGitHub builds the GitHub platform.
func NewGitHub(creds config.Credentials, redirectURL string) *GitHub {
	return &GitHub{
		oauth: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user"},
		},
		api: githubAPIBase,
	}
}

func (g *GitHub) Name() string {
	return "github"
}

func (g *GitHub) AuthorizeURL(state, verifier string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", helpers.GenerateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (g *GitHub) Exchange(ctx context.Context, code, verifier string) (*Identity, error) {
	tok, err := g.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("github code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", g.api+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("github user lookup returned %d", resp.StatusCode)
	}

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode github user: %w", err)
	}

	return &Identity{
		Platform:    g.Name(),
		Account:     strconv.FormatInt(user.ID, 10),
		Refresh:     tok.RefreshToken,
		Access:      tok.AccessToken,
		Expire:      tok.Expiry,
		Handle:      user.Login,
		Name:        user.Name,
		Description: user.Bio,
		Image:       user.AvatarURL,
	}, nil
}
