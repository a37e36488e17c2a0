package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tmcnulty/registrar/internal/auth"
	"github.com/tmcnulty/registrar/internal/models"
	pkgauth "github.com/tmcnulty/registrar/pkg/auth"
	pkglogger "github.com/tmcnulty/registrar/pkg/logger"
)

// UserRepository defines the interface for user storage operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// StudentRepository defines the interface for student storage operations
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByUserID(ctx context.Context, userID string) (*models.Student, error)
	List(ctx context.Context, limit, offset int) ([]*models.Student, error)
	Count(ctx context.Context) (int64, error)
}

// AtomicStore defines the compound all-or-nothing writes backed by a
// single transaction each
type AtomicStore interface {
	RegisterUser(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error)
	ConfirmVerification(ctx context.Context, tokenHash string) (string, error)
	ResetPassword(ctx context.Context, tokenHash, passwordHash string) (string, error)
	UpdateStudentProfile(ctx context.Context, student *models.Student) (*models.Student, error)
}

// AuthService handles registration, login, profile and password changes
type AuthService struct {
	users       UserRepository
	students    StudentRepository
	store       AtomicStore
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, students StudentRepository, store AtomicStore, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		students:    students,
		store:       store,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in HTTP responses
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
}

// StudentResponse represents a student profile in HTTP responses. Verified
// reflects the verification invariant: true when either the student flag or
// the owning user's email-verified flag is set.
type StudentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Course     string `json:"course"`
	EnrolledAt string `json:"enrolled_at"`
	Verified   bool   `json:"verified"`
}

// ProfileResponse is the combined user+student profile
type ProfileResponse struct {
	User    *UserResponse    `json:"user"`
	Student *StudentResponse `json:"student,omitempty"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// Register creates a new account. For students, the User and the Student
// profile are created in one transaction: on any failure neither exists.
// Returns a usable session token.
func (s *AuthService) Register(ctx context.Context, email, password, role, name, course string) (*AuthResponse, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	course = strings.TrimSpace(course)

	if role == "" {
		role = models.RoleStudent
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if role == models.RoleStudent && (name == "" || course == "") {
		return nil, models.ErrMissingProfileFields
	}

	// Check first for a friendly error; the unique constraint still backstops
	// concurrent signups.
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already registered",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.ErrDuplicateEmail
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	var student *models.Student
	if role == models.RoleStudent {
		student = &models.Student{
			Name:       name,
			Course:     course,
			EnrolledAt: time.Now(),
		}
	}

	createdUser, _, err := s.store.RegisterUser(ctx, user, student)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.GenerateSessionToken(createdUser.ID, createdUser.Email)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", createdUser.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID), slog.String("role", createdUser.Role))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, map[string]string{"role": createdUser.Role})

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(createdUser),
	}, nil
}

// Login authenticates a user and returns a session token. Unknown email and
// wrong password fail with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.tm.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(userID, false)
		return models.ErrIncorrectPassword
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	s.auditLogger.LogPasswordChange(userID, true)
	return nil
}

// GetProfile returns the combined user and student profile.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	profile := &ProfileResponse{User: userModelToResponse(user)}

	if user.IsStudent() {
		student, err := s.students.GetByUserID(ctx, userID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to get student profile", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if student != nil {
			profile.Student = studentModelToResponse(student, user)
		}
	}

	return profile, nil
}

// UpdateProfile updates the caller's own profile. A changed email is
// written to both the User and the Student row in one transaction.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, email, course string) (*ProfileResponse, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	course = strings.TrimSpace(course)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if email != "" && email != user.Email {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check email", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if existing != nil && existing.ID != userID {
			return nil, models.ErrDuplicateEmail
		}
	}

	if !user.IsStudent() {
		if email != "" && email != user.Email {
			if err := s.users.UpdateEmail(ctx, userID, email); err != nil {
				if errors.Is(err, models.ErrConflict) {
					return nil, models.ErrDuplicateEmail
				}
				s.logger.Error("failed to update email", slog.String("user_id", userID), slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
		return s.GetProfile(ctx, userID)
	}

	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get student profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if name != "" {
		student.Name = name
	}
	if course != "" {
		student.Course = course
	}
	if email != "" {
		student.Email = email
	}

	if _, err := s.store.UpdateStudentProfile(ctx, student); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return s.GetProfile(ctx, userID)
}

// NormalizeEmail lower-cases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
}

func studentModelToResponse(student *models.Student, user *models.User) *StudentResponse {
	verified := student.Verified
	if user != nil {
		verified = verified || user.EmailVerified
	}
	return &StudentResponse{
		ID:         student.ID,
		Name:       student.Name,
		Email:      student.Email,
		Course:     student.Course,
		EnrolledAt: student.EnrolledAt.Format(time.RFC3339),
		Verified:   verified,
	}
}
