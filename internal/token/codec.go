package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode is returned (wrapped) for any token that cannot be decoded:
// wrong segment count, undecodable payload, or non-JSON claims. Callers treat
// a decode failure as "no usable credential", never as a fatal error.
var ErrDecode = errors.New("token decode failed")

// Claims is the read-only view of a bearer token's payload segment. The
// signature segment is deliberately ignored; the backend re-verifies it on
// every request.
type Claims struct {
	Subject   string
	Email     string
	Roles     []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Raw holds every claim as decoded, for display surfaces like the
	// token debug page.
	Raw map[string]any
}

// Expired reports whether the token's exp claim is in the past at now.
// Tokens without an exp claim never report expired.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// HasRole reports whether the server-issued role list contains exactly role.
// Display-layer convenience only; authorization is enforced by the backend.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Decode extracts the claims payload of a compact three-segment token without
// verifying the signature. It is safe to feed arbitrary garbage from storage:
// every failure mode returns an error wrapping ErrDecode.
func Decode(raw string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, mapClaims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	claims := &Claims{Raw: mapClaims}

	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	claims.Roles = extractRoles(mapClaims)

	return claims, nil
}

// extractRoles reads the role list from either the generic "roles" claim or
// Cognito's "cognito:groups", preserving the server-issued order.
func extractRoles(claims jwt.MapClaims) []string {
	for _, key := range []string{"roles", "cognito:groups"} {
		values, ok := claims[key].([]any)
		if !ok {
			continue
		}
		roles := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
		if len(roles) > 0 {
			return roles
		}
	}
	return nil
}
