// Package auth hashes passwords and issues and verifies bearer tokens.
package auth

import (
	"fmt"
	"time"

	domainerrors "taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user payload next to the registered fields. Subject holds the user id.
type Claims struct {
	UserID string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, domainerrors.ErrMissingJWTSecret
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs an HS256 token for the user.
func (i *TokenIssuer) Issue(u models.UserPayload) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry. Every failure is reported as ErrInvalidToken.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domainerrors.ErrInvalidToken
	}
	return claims, nil
}
