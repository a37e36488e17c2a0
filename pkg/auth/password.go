package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/tmcnulty/registrar/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	TokenLength    = 32 // 256 bits of entropy for verification/reset tokens
	MinPasswordLen = 6
	MaxPasswordLen = 72 // bcrypt input limit
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return models.ErrWeakPassword
	}
	return nil
}

// GenerateActionToken returns a random opaque token suitable for embedding
// in emailed URLs, plus the SHA-256 hex digest that goes to storage. The
// plain value is never persisted.
func GenerateActionToken() (plain, hash string, err error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	plain = base64.URLEncoding.EncodeToString(bytes)
	return plain, HashActionToken(plain), nil
}

// HashActionToken re-derives the storage digest from a plain token, used to
// look tokens up at confirmation time.
func HashActionToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
