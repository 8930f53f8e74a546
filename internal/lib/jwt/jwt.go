package jwt

import (
	"errors"
	"fmt"
	"time"

	"pet_adoption/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload: sub is the username.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewToken issues an HS512 access token for the user.
func NewToken(user models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	return token.SignedString([]byte(secret))
}

// ParseToken checks signature and expiry and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	const op = "jwt.ParseToken"

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w: missing sub claim", op, ErrInvalidToken)
	}

	return claims, nil
}
