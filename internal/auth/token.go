package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tmcnulty/registrar/internal/models"
)

// TokenManager handles session JWT generation and validation
type TokenManager struct {
	secret string
	expiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
	}
}

// GenerateSessionToken creates a signed, expiring bearer token carrying the
// user identity and nothing else.
func (tm *TokenManager) GenerateSessionToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		Type:   "session",
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken verifies a token's signature and expiry and returns
// its claims. Signature-invalid and expired tokens fail identically.
func (tm *TokenManager) ValidateSessionToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, models.ErrUnauthorized
	}

	if !token.Valid || claims.Type != "session" || claims.UserID == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
