package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tmcnulty/registrar/internal/auth"
	"github.com/tmcnulty/registrar/internal/models"
	pkgauth "github.com/tmcnulty/registrar/pkg/auth"
)

func newAuthService(users *MockUserRepository, students *MockStudentRepository, store *MockAtomicStore) *AuthService {
	tm := auth.NewTokenManager("test-secret-key-for-unit-tests", time.Hour)
	return NewAuthService(users, students, store, tm, newTestLogger(), newTestAuditLogger())
}

func TestAuthService_Register_Student(t *testing.T) {
	store := &MockAtomicStore{
		RegisterUserFunc: func(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error) {
			assert.NotNil(t, student, "student profile must be created with the user")
			assert.Equal(t, models.RoleStudent, user.Role)

			created := *user
			created.ID = "user-1"
			created.CreatedAt = time.Now()
			createdStudent := *student
			createdStudent.ID = "student-1"
			createdStudent.UserID = created.ID
			createdStudent.Email = created.Email
			return &created, &createdStudent, nil
		},
	}
	svc := newAuthService(&MockUserRepository{}, &MockStudentRepository{}, store)

	resp, err := svc.Register(context.Background(), "  Ada@Example.COM ", "password123", "", "Ada Lovelace", "Mathematics")

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.False(t, resp.User.EmailVerified)
}

func TestAuthService_Register_MissingProfileFields(t *testing.T) {
	called := false
	store := &MockAtomicStore{
		RegisterUserFunc: func(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error) {
			called = true
			return nil, nil, nil
		},
	}
	svc := newAuthService(&MockUserRepository{}, &MockStudentRepository{}, store)

	_, err := svc.Register(context.Background(), "ada@example.com", "password123", models.RoleStudent, "", "Mathematics")
	assert.ErrorIs(t, err, models.ErrMissingProfileFields)

	_, err = svc.Register(context.Background(), "ada@example.com", "password123", models.RoleStudent, "Ada", "   ")
	assert.ErrorIs(t, err, models.ErrMissingProfileFields)

	assert.False(t, called, "nothing may be written when profile fields are missing")
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newAuthService(&MockUserRepository{}, &MockStudentRepository{}, &MockAtomicStore{})

	_, err := svc.Register(context.Background(), "ada@example.com", "short", "", "Ada", "Math")
	assert.ErrorIs(t, err, models.ErrWeakPassword)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return NewTestUser("user-1", email, models.RoleStudent), nil
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	_, err := svc.Register(context.Background(), "ada@example.com", "password123", "", "Ada", "Math")
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}

func TestAuthService_Register_DuplicateEmailRace(t *testing.T) {
	// The pre-check misses but the unique constraint in the store fires.
	store := &MockAtomicStore{
		RegisterUserFunc: func(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error) {
			return nil, nil, models.ErrConflict
		},
	}
	svc := newAuthService(&MockUserRepository{}, &MockStudentRepository{}, store)

	_, err := svc.Register(context.Background(), "ada@example.com", "password123", "", "Ada", "Math")
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := pkgauth.HashPassword("password123")
	assert.NoError(t, err)

	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.PasswordHash = hash

	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "ada@example.com", "password123", nil},
		{"mixed case email", "Ada@Example.com", "password123", nil},
		{"wrong password", "ada@example.com", "wrongpass", models.ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "password123", models.ErrInvalidCredentials},
		{"empty email", "", "password123", models.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, user.ID, resp.User.ID)
		})
	}
}

func TestAuthService_Login_SucceedsAfterFailures(t *testing.T) {
	hash, err := pkgauth.HashPassword("password123")
	assert.NoError(t, err)

	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.PasswordHash = hash

	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "ada@example.com", "wrongpass")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	resp, err := svc.Login(context.Background(), "ada@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_ChangePassword(t *testing.T) {
	hash, err := pkgauth.HashPassword("oldpassword")
	assert.NoError(t, err)

	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.PasswordHash = hash

	var updatedHash string
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			updatedHash = passwordHash
			return nil
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	err = svc.ChangePassword(context.Background(), "user-1", "oldpassword", "newpassword")
	assert.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(updatedHash, "newpassword"))
}

func TestAuthService_ChangePassword_IncorrectCurrent(t *testing.T) {
	hash, err := pkgauth.HashPassword("oldpassword")
	assert.NoError(t, err)

	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.PasswordHash = hash

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	err = svc.ChangePassword(context.Background(), "user-1", "wrongpass", "newpassword")
	assert.ErrorIs(t, err, models.ErrIncorrectPassword)
}

func TestAuthService_ChangePassword_WeakNewPassword(t *testing.T) {
	hash, err := pkgauth.HashPassword("oldpassword")
	assert.NoError(t, err)

	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.PasswordHash = hash

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	err = svc.ChangePassword(context.Background(), "user-1", "oldpassword", "tiny")
	assert.ErrorIs(t, err, models.ErrWeakPassword)
}

func TestAuthService_GetProfile_Student(t *testing.T) {
	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	student := NewTestStudent("student-1", "user-1", "Ada Lovelace", "ada@example.com", "Mathematics")

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	students := &MockStudentRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.Student, error) {
			return student, nil
		},
	}
	svc := newAuthService(users, students, &MockAtomicStore{})

	profile, err := svc.GetProfile(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, "user-1", profile.User.ID)
	assert.NotNil(t, profile.Student)
	assert.Equal(t, "Ada Lovelace", profile.Student.Name)
	assert.False(t, profile.Student.Verified)
}

func TestAuthService_GetProfile_VerifiedReflectsUserFlag(t *testing.T) {
	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	user.EmailVerified = true
	student := NewTestStudent("student-1", "user-1", "Ada Lovelace", "ada@example.com", "Mathematics")
	student.Verified = true

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	students := &MockStudentRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.Student, error) {
			return student, nil
		},
	}
	svc := newAuthService(users, students, &MockAtomicStore{})

	profile, err := svc.GetProfile(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.True(t, profile.User.EmailVerified)
	assert.True(t, profile.Student.Verified)
}

func TestAuthService_UpdateProfile_EmailSyncedAtomically(t *testing.T) {
	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	student := NewTestStudent("student-1", "user-1", "Ada Lovelace", "ada@example.com", "Mathematics")

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	students := &MockStudentRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.Student, error) {
			return student, nil
		},
	}
	var updated *models.Student
	store := &MockAtomicStore{
		UpdateStudentProfileFunc: func(ctx context.Context, s *models.Student) (*models.Student, error) {
			updated = s
			user.Email = s.Email
			student.Email = s.Email
			return s, nil
		},
	}
	svc := newAuthService(users, students, store)

	profile, err := svc.UpdateProfile(context.Background(), "user-1", "", "new@example.com", "")
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "new@example.com", profile.User.Email)
	assert.Equal(t, "new@example.com", profile.Student.Email)
}

func TestAuthService_UpdateProfile_DuplicateEmail(t *testing.T) {
	user := NewTestUser("user-1", "ada@example.com", models.RoleStudent)
	other := NewTestUser("user-2", "taken@example.com", models.RoleStudent)

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == other.Email {
				return other, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := newAuthService(users, &MockStudentRepository{}, &MockAtomicStore{})

	_, err := svc.UpdateProfile(context.Background(), "user-1", "", "taken@example.com", "")
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@EXAMPLE.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
