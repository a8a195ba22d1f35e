package platforms

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"harbor/internal/config"
	"harbor/internal/helpers"
)

const (
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	googleIssuer  = "https://accounts.google.com"
)

// Google signs visitors in through Google OIDC. The identity comes from
// the id_token rather than a userinfo call, so its signature is verified
// against Google's published keys before anything is trusted.
type Google struct {
	oauth  oauth2.Config
	jwks   string
	issuer string
}

// NewGoogle builds the Google platform.
func NewGoogle(creds config.Credentials, redirectURL string) *Google {
	return &Google{
		oauth: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
		},
		jwks:   googleJWKSURL,
		issuer: googleIssuer,
	}
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) AuthorizeURL(state, verifier string) string {
	return g.oauth.AuthCodeURL(state,
		// offline access is what makes Google hand out a refresh token
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("code_challenge", helpers.GenerateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (*Identity, error) {
	tok, err := g.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("google token response carried no id_token")
	}

	claims, err := verifyIDToken(ctx, raw, g.jwks, g.issuer, g.oauth.ClientID)
	if err != nil {
		return nil, fmt.Errorf("verify google id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("google id_token carried no subject")
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)

	return &Identity{
		Platform: g.Name(),
		Account:  sub,
		Refresh:  tok.RefreshToken,
		Access:   tok.AccessToken,
		Expire:   tok.Expiry,
		Handle:   email,
		Name:     name,
		Image:    picture,
	}, nil
}
