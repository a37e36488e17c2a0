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

// ActionTokenRepository defines the interface for token storage
type ActionTokenRepository interface {
	Upsert(ctx context.Context, userID, purpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// EmailSender defines the interface for outbound email delivery
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
}

// VerificationService owns the student email verification flow
type VerificationService struct {
	users       UserRepository
	students    StudentRepository
	tokens      ActionTokenRepository
	store       AtomicStore
	email       EmailSender
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	tokenTTL    time.Duration
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	users UserRepository,
	students StudentRepository,
	tokens ActionTokenRepository,
	store AtomicStore,
	email EmailSender,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	tokenTTL time.Duration,
) *VerificationService {
	return &VerificationService{
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

// Request issues a fresh verification token for the student owned by
// userID and hands it to the email gateway. A prior pending token is
// overwritten, so exactly one token is live at a time. The email is sent
// only after the token write is durable; delivery failure does not undo the
// token, the student simply requests a resend.
func (s *VerificationService) Request(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !user.IsStudent() {
		return models.ErrNotFound
	}

	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get student", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if student.Verified || user.EmailVerified {
		return models.ErrAlreadyVerified
	}

	plainToken, tokenHash, err := pkgauth.GenerateActionToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if _, err := s.tokens.Upsert(ctx, userID, models.PurposeEmailVerification, tokenHash, expiresAt); err != nil {
		s.logger.Error("failed to store verification token",
			slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendVerificationEmail(ctx, user.Email, student.Name, plainToken); err != nil {
		// The token is committed; delivery is recoverable via resend.
		s.logger.Error("failed to send verification email",
			slog.String("user_id", userID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return nil
	}

	s.logger.Info("verification email sent",
		slog.String("user_id", userID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "verification_requested",
		UserID:    userID,
		Success:   true,
	})

	return nil
}

// Confirm consumes a verification token. On success the student's verified
// flag and the owning user's email-verified flag are set together in one
// transaction; the token is single-use. Unknown and expired tokens fail
// identically.
func (s *VerificationService) Confirm(ctx context.Context, plainToken string) (string, error) {
	if plainToken == "" {
		return "", models.ErrInvalidOrExpiredToken
	}

	tokenHash := pkgauth.HashActionToken(plainToken)

	userID, err := s.store.ConfirmVerification(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, models.ErrInvalidOrExpiredToken) || errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification failed: invalid or expired token")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "verification_failed",
				FailureReason: "invalid_or_expired_token",
				Success:       false,
			})
			return "", models.ErrInvalidOrExpiredToken
		}
		s.logger.Error("failed to confirm verification", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("student verified", slog.String("user_id", userID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "verification_confirmed",
		UserID:    userID,
		Success:   true,
	})

	return userID, nil
}
