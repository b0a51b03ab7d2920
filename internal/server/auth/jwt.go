// Package auth issues and checks the HS256 session tokens that carry the
// owner id of a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the owner the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// GenerateToken signs a token for ownerID valid for validity.
func GenerateToken(ownerID string, secretKey []byte, validity time.Duration) (string, error) {
	if ownerID == "" {
		return "", errors.New("empty owner id")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		OwnerID: ownerID,
	})

	return token.SignedString(secretKey)
}

// OwnerIDFromToken validates tokenString and returns its owner id.
// Expired tokens yield common.ErrTokenExpired, every other problem
// common.ErrInvalidToken.
func OwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.OwnerID, nil
}
