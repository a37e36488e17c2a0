package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tmcnulty/registrar/internal/models"
	pkgauth "github.com/tmcnulty/registrar/pkg/auth"
	pkglogger "github.com/tmcnulty/registrar/pkg/logger"
)

// PasswordResetService owns the forgot-password flow
type PasswordResetService struct {
	users       UserRepository
	students    StudentRepository
	tokens      ActionTokenRepository
	store       AtomicStore
	email       EmailSender
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	tokenTTL    time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	users UserRepository,
	students StudentRepository,
	tokens ActionTokenRepository,
	store AtomicStore,
	email EmailSender,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	tokenTTL time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		users:       users,
		students:    students,
		tokens:      tokens,
		store:       store,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
		tokenTTL:    tokenTTL,
	}
}

// Request issues a reset token for the account matching email and hands it
// to the email gateway. An unknown email fails with ErrNotFound. Any prior
// pending token is overwritten; the email goes out only after the token
// write is durable, and delivery failure does not undo it.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	plainToken, tokenHash, err := pkgauth.GenerateActionToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if _, err := s.tokens.Upsert(ctx, user.ID, models.PurposePasswordReset, tokenHash, expiresAt); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Address the email with the student's name when there is one.
	name := user.Email
	if user.IsStudent() {
		if student, err := s.students.GetByUserID(ctx, user.ID); err == nil {
			name = student.Name
		}
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, name, plainToken); err != nil {
		s.logger.Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return nil
	}

	s.logger.Info("password reset email sent",
		slog.String("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_reset_requested",
		UserID:    user.ID,
		Success:   true,
	})

	return nil
}

// Confirm consumes a reset token and replaces the password in one
// transaction. The token is single-use; confirming again with the same
// token fails. password_changed_at is stamped, which revokes session
// tokens issued before the reset.
func (s *PasswordResetService) Confirm(ctx context.Context, plainToken, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	if plainToken == "" {
		return models.ErrInvalidOrExpiredToken
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	tokenHash := pkgauth.HashActionToken(plainToken)

	userID, err := s.store.ResetPassword(ctx, tokenHash, hashedPassword)
	if err != nil {
		if errors.Is(err, models.ErrInvalidOrExpiredToken) || errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset failed: invalid or expired token")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "password_reset_failed",
				FailureReason: "invalid_or_expired_token",
				Success:       false,
			})
			return models.ErrInvalidOrExpiredToken
		}
		s.logger.Error("failed to reset password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.String("user_id", userID))
	s.auditLogger.LogPasswordChange(userID, true)

	return nil
}
