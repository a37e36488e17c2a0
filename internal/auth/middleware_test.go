package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tmcnulty/registrar/internal/models"
)

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)

	token, err := tm.GenerateSessionToken("user123", "ada@x.com")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tm.ValidateSessionToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "session", claims.Type)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "ada@x.com", claims.Email)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", -1*time.Minute)

	token, err := tm.GenerateSessionToken("user123", "ada@x.com")
	assert.NoError(t, err)

	_, err = tm.ValidateSessionToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	other := NewTokenManager("another-secret-32-characters!!!", 1*time.Hour)

	token, err := tm.GenerateSessionToken("user123", "ada@x.com")
	assert.NoError(t, err)

	_, err = other.ValidateSessionToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	repo := &stubUserRepo{user: &models.User{ID: "user123", Role: models.RoleStudent}}

	token, _ := tm.GenerateSessionToken("user123", "ada@x.com")

	var hit bool
	handler := Middleware(tm, repo)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, hit)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	repo := &stubUserRepo{user: &models.User{ID: "user123"}}

	var hit bool
	handler := Middleware(tm, repo)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	repo := &stubUserRepo{user: &models.User{ID: "user123"}}

	var hit bool
	handler := Middleware(tm, repo)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Token abc123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_TokenIssuedBeforePasswordChange(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)

	token, _ := tm.GenerateSessionToken("user123", "ada@x.com")

	changed := time.Now().Add(1 * time.Minute)
	repo := &stubUserRepo{user: &models.User{ID: "user123", PasswordChangedAt: &changed}}

	var hit bool
	handler := Middleware(tm, repo)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_DeletedUser(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	repo := &stubUserRepo{err: models.ErrNotFound}

	token, _ := tm.GenerateSessionToken("user123", "ada@x.com")

	var hit bool
	handler := Middleware(tm, repo)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, hit)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", 1*time.Hour)
	token, _ := tm.GenerateSessionToken("user123", "ada@x.com")

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"admin allowed", models.RoleAdmin, http.StatusOK},
		{"student forbidden", models.RoleStudent, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubUserRepo{user: &models.User{ID: "user123", Role: tt.role}}

			var hit bool
			handler := Middleware(tm, repo)(RequireRole(repo, models.RoleAdmin)(okHandler(&hit)))

			req := httptest.NewRequest("GET", "/api/students", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
