package platforms

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// verifyIDToken checks the signature, issuer, audience, and expiry of an
// OIDC id_token and returns its claims. The signing keys are fetched from
// the platform's JWKS endpoint on every call; sign-ins are rare enough
// that a key cache is not worth carrying.
func verifyIDToken(ctx context.Context, raw, jwksURL, issuer, audience string) (jwt.MapClaims, error) {
	set, err := jwk.Fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", jwksURL, err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id_token header carries no kid")
		}

		key, ok := set.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("no jwks key matches kid %s", kid)
		}

		var pub interface{}
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("extract public key for kid %s: %w", kid, err)
		}
		return pub, nil
	},
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
