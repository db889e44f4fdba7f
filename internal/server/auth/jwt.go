// Package auth issues and verifies session tokens and carries the
// authenticated identity through request contexts.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the session token claims: the registered set plus the user id.
// RegisteredClaims.ID holds a random session id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

func GenerateToken(userID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, every other failure common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID <= 0 {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// IdentityFromToken is a convenience wrapper around ParseToken.
func IdentityFromToken(tokenString string, secretKey []byte) (Identity, error) {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, SessionID: claims.ID}, nil
}
