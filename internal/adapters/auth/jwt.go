// Package auth turns bearer tokens into a domain.Identity. Issuing tokens is
// left to the identity provider; Sign exists for tooling and tests.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hotel_listings/internal/domain"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks an HS256 token and returns the identity it carries.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if len(v.secret) == 0 {
		return domain.Identity{}, fmt.Errorf("no signing secret configured: %w", domain.ErrUnauthorized)
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %v: %w", err, domain.ErrUnauthorized)
	}
	if !tok.Valid {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}

	id := domain.Identity{ID: claims.Subject, Role: domain.Role(claims.Role)}
	if id.ID == "" || !id.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("token lacks subject or role: %w", domain.ErrUnauthorized)
	}
	return id, nil
}

func Sign(secret string, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return s, nil
}
