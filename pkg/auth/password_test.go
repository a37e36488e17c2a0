package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmcnulty/registrar/internal/models"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.NoError(t, ComparePassword(hash, "correct horse battery"))
	assert.Error(t, ComparePassword(hash, "wrong password"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), models.ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("a", MaxPasswordLen+1)), models.ErrWeakPassword)
	assert.NoError(t, ValidatePassword("secret1"))
}

func TestGenerateActionToken(t *testing.T) {
	plain, hash, err := GenerateActionToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, plain)
	assert.Equal(t, HashActionToken(plain), hash)

	// Tokens are unique per call
	plain2, hash2, err := GenerateActionToken()
	assert.NoError(t, err)
	assert.NotEqual(t, plain, plain2)
	assert.NotEqual(t, hash, hash2)

	// Hash is a SHA-256 hex digest
	assert.Len(t, hash, 64)
}
