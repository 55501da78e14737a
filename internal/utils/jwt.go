package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminSubject = "admin"

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken creates a signed, expiring JWT proving admin identity.
func GenerateAdminToken(secret string, ttl time.Duration) (string, error) {
	claims := &adminClaims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAdminToken validates the token signature, expiry, and subject.
func ParseAdminToken(secret, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid || claims.Subject != adminSubject {
		return jwt.ErrTokenInvalidClaims
	}

	return nil
}
