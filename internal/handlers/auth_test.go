package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmcnulty/registrar/internal/handlers"
	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/services"
)

func TestSignup_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error) {
			assert.Equal(t, models.RoleStudent, role)
			return &services.AuthResponse{
				Token: "session_token_123",
				User:  &services.UserResponse{ID: "user-1", Email: email, Role: role},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/signup", handlers.SignupRequest{
		Email:    "ada@example.com",
		Password: "password123",
		Name:     "Ada Lovelace",
		Course:   "Mathematics",
	})

	w := httptest.NewRecorder()
	handler.Signup(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "session_token_123", resp.Token)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error) {
			return nil, models.ErrDuplicateEmail
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/signup", handlers.SignupRequest{
		Email:    "ada@example.com",
		Password: "password123",
		Name:     "Ada Lovelace",
		Course:   "Mathematics",
	})

	w := httptest.NewRecorder()
	handler.Signup(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestSignup_Validation(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, nil)

	tests := []struct {
		name string
		body handlers.SignupRequest
	}{
		{"missing email", handlers.SignupRequest{Password: "password123"}},
		{"invalid email", handlers.SignupRequest{Email: "not-an-email", Password: "password123"}},
		{"missing password", handlers.SignupRequest{Email: "ada@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := handlers.NewTestRequest(t, "POST", "/api/auth/signup", tt.body)
			w := httptest.NewRecorder()
			handler.Signup(w, req)
			handlers.AssertErrorResponse(t, w, 400, "bad_request")
		})
	}
}

func TestSignup_WeakPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error) {
			return nil, models.ErrWeakPassword
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/signup", handlers.SignupRequest{
		Email:    "ada@example.com",
		Password: "tiny",
		Name:     "Ada",
		Course:   "Math",
	})

	w := httptest.NewRecorder()
	handler.Signup(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				Token: "session_token_123",
				User:  &services.UserResponse{ID: "user-1", Email: email},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "ada@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "session_token_123", resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrInvalidCredentials
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login", handlers.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestGetProfile(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		GetProfileFunc: func(ctx context.Context, userID string) (*services.ProfileResponse, error) {
			assert.Equal(t, "user-1", userID)
			return &services.ProfileResponse{
				User:    &services.UserResponse{ID: userID, Email: "ada@example.com"},
				Student: &services.StudentResponse{ID: "student-1", Name: "Ada Lovelace"},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "GET", "/api/auth/profile", nil)
	req = handlers.WithAuthContext(req, "user-1", "ada@example.com")

	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	var resp services.ProfileResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "Ada Lovelace", resp.Student.Name)
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, nil)
	req := handlers.NewTestRequest(t, "GET", "/api/auth/profile", nil)

	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestChangePassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			return nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "PUT", "/api/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "oldpassword",
		NewPassword:     "newpassword",
	})
	req = handlers.WithAuthContext(req, "user-1", "ada@example.com")

	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
}

func TestChangePassword_Incorrect(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, userID, currentPassword, newPassword string) error {
			return models.ErrIncorrectPassword
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil, nil)
	req := handlers.NewTestRequest(t, "PUT", "/api/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "wrongpassword",
		NewPassword:     "newpassword",
	})
	req = handlers.WithAuthContext(req, "user-1", "ada@example.com")

	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestSendVerification(t *testing.T) {
	mock := &handlers.MockVerificationService{
		RequestFunc: func(ctx context.Context, userID string) error {
			assert.Equal(t, "user-1", userID)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/send-verification", nil)
	req = handlers.WithAuthContext(req, "user-1", "ada@example.com")

	w := httptest.NewRecorder()
	handler.SendVerification(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
}

func TestSendVerification_AlreadyVerified(t *testing.T) {
	mock := &handlers.MockVerificationService{
		RequestFunc: func(ctx context.Context, userID string) error {
			return models.ErrAlreadyVerified
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/send-verification", nil)
	req = handlers.WithAuthContext(req, "user-1", "ada@example.com")

	w := httptest.NewRecorder()
	handler.SendVerification(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestVerifyStudent(t *testing.T) {
	mock := &handlers.MockVerificationService{
		ConfirmFunc: func(ctx context.Context, plainToken string) (string, error) {
			assert.Equal(t, "tok-123", plainToken)
			return "user-1", nil
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, mock, nil)
	req := handlers.NewTestRequest(t, "GET", "/api/auth/verify-student/tok-123", nil)
	req = handlers.WithURLParam(req, "token", "tok-123")

	w := httptest.NewRecorder()
	handler.VerifyStudent(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
}

func TestVerifyStudent_InvalidToken(t *testing.T) {
	mock := &handlers.MockVerificationService{
		ConfirmFunc: func(ctx context.Context, plainToken string) (string, error) {
			return "", models.ErrInvalidOrExpiredToken
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, mock, nil)
	req := handlers.NewTestRequest(t, "GET", "/api/auth/verify-student/stale", nil)
	req = handlers.WithURLParam(req, "token", "stale")

	w := httptest.NewRecorder()
	handler.VerifyStudent(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestForgotPassword(t *testing.T) {
	mock := &handlers.MockPasswordResetService{
		RequestFunc: func(ctx context.Context, email string) error {
			assert.Equal(t, "ada@example.com", email)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, mock)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/forgot-password", handlers.ForgotPasswordRequest{
		Email: "ada@example.com",
	})

	w := httptest.NewRecorder()
	handler.ForgotPassword(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	mock := &handlers.MockPasswordResetService{
		RequestFunc: func(ctx context.Context, email string) error {
			return models.ErrNotFound
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, mock)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/forgot-password", handlers.ForgotPasswordRequest{
		Email: "nobody@example.com",
	})

	w := httptest.NewRecorder()
	handler.ForgotPassword(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestResetPassword(t *testing.T) {
	mock := &handlers.MockPasswordResetService{
		ConfirmFunc: func(ctx context.Context, plainToken, newPassword string) error {
			assert.Equal(t, "tok-123", plainToken)
			assert.Equal(t, "newpassword", newPassword)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, mock)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/reset-password/tok-123", handlers.ResetPasswordRequest{
		Password: "newpassword",
	})
	req = handlers.WithURLParam(req, "token", "tok-123")

	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	var resp handlers.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	mock := &handlers.MockPasswordResetService{
		ConfirmFunc: func(ctx context.Context, plainToken, newPassword string) error {
			return models.ErrInvalidOrExpiredToken
		},
	}

	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, mock)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/reset-password/stale", handlers.ResetPasswordRequest{
		Password: "newpassword",
	})
	req = handlers.WithURLParam(req, "token", "stale")

	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
