package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tmcnulty/registrar/internal/auth"
	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/services"
	pkghttp "github.com/tmcnulty/registrar/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	GetProfile(ctx context.Context, userID string) (*services.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID, name, email, course string) (*services.ProfileResponse, error)
}

// VerificationServiceInterface defines the interface for the student
// email verification flow
type VerificationServiceInterface interface {
	Request(ctx context.Context, userID string) error
	Confirm(ctx context.Context, plainToken string) (string, error)
}

// PasswordResetServiceInterface defines the interface for the
// forgot-password flow
type PasswordResetServiceInterface interface {
	Request(ctx context.Context, email string) error
	Confirm(ctx context.Context, plainToken, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	verification VerificationServiceInterface
	reset        PasswordResetServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, verification VerificationServiceInterface, reset PasswordResetServiceInterface) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verification: verification,
		reset:        reset,
	}
}

// Request DTOs

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Course   string `json:"course"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// UpdateProfileRequest represents the request body for a profile update
type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Course string `json:"course"`
}

// ForgotPasswordRequest represents the request body for a reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for a password reset
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// MessageResponse is a generic confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup handles self-service registration. New accounts are students; the
// student profile is created with the user in one transaction.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.Register(r.Context(), req.Email, req.Password, models.RoleStudent, req.Name, req.Course)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateEmail):
			pkghttp.WriteConflict(w, "Email is already registered")
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteBadRequest(w, "Password must be at least 6 characters")
		case errors.Is(err, models.ErrMissingProfileFields):
			pkghttp.WriteBadRequest(w, "Name and course are required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, authResp)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// GetProfile returns the authenticated user's combined profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Profile not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile updates the authenticated user's own profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Email, req.Course)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateEmail):
			pkghttp.WriteConflict(w, "Email is already registered")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Profile not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// ChangePassword replaces the authenticated user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, models.ErrIncorrectPassword):
			pkghttp.WriteBadRequest(w, "Current password is incorrect")
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteBadRequest(w, "Password must be at least 6 characters")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// SendVerification issues a verification token for the authenticated
// student and emails the link
func (h *AuthHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.verification.Request(r.Context(), claims.UserID); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyVerified):
			pkghttp.WriteBadRequest(w, "Email is already verified")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Student profile not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Verification email sent"})
}

// VerifyStudent consumes a verification token from the emailed link
func (h *AuthHandler) VerifyStudent(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := h.verification.Confirm(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOrExpiredToken):
			pkghttp.WriteBadRequest(w, "Invalid or expired verification token")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully"})
}

// ForgotPassword issues a password reset token and emails the link
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.reset.Request(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No account found for that email")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword consumes a reset token and sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.reset.Confirm(r.Context(), token, req.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteBadRequest(w, "Password must be at least 6 characters")
		case errors.Is(err, models.ErrInvalidOrExpiredToken):
			pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}
