package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"harbor/internal/config"
	"harbor/internal/helpers"
)

const (
	discordAPIBase = "https://discord.com/api"
	discordCDNBase = "https://cdn.discordapp.com"
)

// Discord signs visitors in through Discord OAuth2 with the identify
// scope. Avatars come back as a bare hash, so the image URL is assembled
// against Discord's CDN.
type Discord struct {
	oauth oauth2.Config
	api   string
	cdn   string
}

// NewDiscord builds the Discord platform.
func NewDiscord(creds config.Credentials, redirectURL string) *Discord {
	return &Discord{
		oauth: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     endpoints.Discord,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify"},
		},
		api: discordAPIBase,
		cdn: discordCDNBase,
	}
}

func (d *Discord) Name() string {
	return "discord"
}

func (d *Discord) AuthorizeURL(state, verifier string) string {
	return d.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", helpers.GenerateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (d *Discord) Exchange(ctx context.Context, code, verifier string) (*Identity, error) {
	tok, err := d.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("discord code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.api+"/users/@me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord user lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("discord user lookup returned %d", resp.StatusCode)
	}

	var user struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Avatar     string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode discord user: %w", err)
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	var image string
	if user.Avatar != "" {
		image = fmt.Sprintf("%s/avatars/%s/%s.png", d.cdn, user.ID, user.Avatar)
	}

	return &Identity{
		Platform: d.Name(),
		Account:  user.ID,
		Refresh:  tok.RefreshToken,
		Access:   tok.AccessToken,
		Expire:   tok.Expiry,
		Handle:   user.Username,
		Name:     name,
		Image:    image,
	}, nil
}
