package util

import (
	"errors"
	"fmt"

	jwt "github.com/dgrijalva/jwt-go"
)

// Claims carried by the identity provider's access tokens. Subject is the
// opaque user identifier.
type Claims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// ValidateJWT validates an HMAC-signed token against the shared secret and
// returns its claims.
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
