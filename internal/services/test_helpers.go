package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tmcnulty/registrar/internal/models"
	pkglogger "github.com/tmcnulty/registrar/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	UpdateEmailFunc    func(ctx context.Context, id, email string) error
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	if m.UpdateEmailFunc != nil {
		return m.UpdateEmailFunc(ctx, id, email)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockStudentRepository implements StudentRepository for testing
type MockStudentRepository struct {
	GetByIDFunc     func(ctx context.Context, id string) (*models.Student, error)
	GetByUserIDFunc func(ctx context.Context, userID string) (*models.Student, error)
	ListFunc        func(ctx context.Context, limit, offset int) ([]*models.Student, error)
	CountFunc       func(ctx context.Context) (int64, error)
}

func (m *MockStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentRepository) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentRepository) List(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Student{}, nil
}

func (m *MockStudentRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

// MockAtomicStore implements AtomicStore for testing
type MockAtomicStore struct {
	RegisterUserFunc         func(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error)
	ConfirmVerificationFunc  func(ctx context.Context, tokenHash string) (string, error)
	ResetPasswordFunc        func(ctx context.Context, tokenHash, passwordHash string) (string, error)
	UpdateStudentProfileFunc func(ctx context.Context, student *models.Student) (*models.Student, error)
}

func (m *MockAtomicStore) RegisterUser(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error) {
	if m.RegisterUserFunc != nil {
		return m.RegisterUserFunc(ctx, user, student)
	}
	return nil, nil, models.ErrInternalServer
}

func (m *MockAtomicStore) ConfirmVerification(ctx context.Context, tokenHash string) (string, error) {
	if m.ConfirmVerificationFunc != nil {
		return m.ConfirmVerificationFunc(ctx, tokenHash)
	}
	return "", models.ErrInvalidOrExpiredToken
}

func (m *MockAtomicStore) ResetPassword(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, tokenHash, passwordHash)
	}
	return "", models.ErrInvalidOrExpiredToken
}

func (m *MockAtomicStore) UpdateStudentProfile(ctx context.Context, student *models.Student) (*models.Student, error) {
	if m.UpdateStudentProfileFunc != nil {
		return m.UpdateStudentProfileFunc(ctx, student)
	}
	return nil, models.ErrInternalServer
}

// MockActionTokenRepository implements ActionTokenRepository for testing
type MockActionTokenRepository struct {
	UpsertFunc        func(ctx context.Context, userID, purpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error)
	DeleteExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockActionTokenRepository) Upsert(ctx context.Context, userID, purpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, purpose, tokenHash, expiresAt)
	}
	return &models.ActionToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockActionTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	return 0, nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendVerificationEmailFunc  func(ctx context.Context, to, name, token string) error
	SendPasswordResetEmailFunc func(ctx context.Context, to, name, token string) error
}

func (m *MockEmailSender) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, to, name, token)
	}
	return nil
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, to, name, token)
	}
	return nil
}

// NewTestUser creates a User for tests
func NewTestUser(id, email, role string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestStudent creates a Student for tests
func NewTestStudent(id, userID, name, email, course string) *models.Student {
	now := time.Now()
	return &models.Student{
		ID:         id,
		UserID:     userID,
		Name:       name,
		Email:      email,
		Course:     course,
		EnrolledAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}
