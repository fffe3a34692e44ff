// Package token verifies the bearer tokens guarding the HTTP API.
// Token issuance belongs to the auth collaborator; this side only
// validates signature, issuer and expiry.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims carried on API tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
}

// Verifier validates symmetric HMAC tokens.
type Verifier struct {
	secretKey string
	issuer    string
}

// NewVerifier creates a Verifier bound to the given secret and issuer.
func NewVerifier(secretKey, issuer string) *Verifier {
	return &Verifier{secretKey: secretKey, issuer: issuer}
}

// Parse validates a token and extracts the user ID.
func (v *Verifier) Parse(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(v.secretKey), nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("token is invalid")
	}
	return claims.UserID, nil
}
