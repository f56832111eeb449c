// Package auth validates bearer JWTs presented by players to the command
// façade, resolving the validated subject claim into a player identifier.
package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ValidatePlayerToken validates a JWT against issuerBaseURL's JWKS
// endpoint and returns its claims. issuerBaseURL is the base URL of the
// identity provider (e.g. Config.AuthIssuerURL); an empty issuerBaseURL
// is the caller's responsibility to reject before calling this (auth not
// configured).
func ValidatePlayerToken(issuerBaseURL, tokenString string) (jwt.MapClaims, error) {
	if issuerBaseURL == "" {
		return nil, fmt.Errorf("auth: issuer base URL is not set")
	}
	jwksURL := issuerBaseURL + "/.well-known/jwks.json"

	u, err := url.Parse(issuerBaseURL)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid issuer base URL: %w", err)
	}
	expectedIssuer := u.Scheme + "://" + u.Host

	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("auth: fetching JWKS: %w", err)
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithIssuer(expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA", "RS256"}))
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	return claims, nil
}

// PlayerIDFromClaims returns the player identifier from claims ("sub" or "id").
func PlayerIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && strings.TrimSpace(sub) != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return ""
}
