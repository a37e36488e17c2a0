package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tmcnulty/registrar/internal/models"
	pkgauth "github.com/tmcnulty/registrar/pkg/auth"
	pkglogger "github.com/tmcnulty/registrar/pkg/logger"
)

// StudentService handles the administrative student CRUD surface
type StudentService struct {
	users       UserRepository
	students    StudentRepository
	store       AtomicStore
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewStudentService creates a new StudentService
func NewStudentService(users UserRepository, students StudentRepository, store AtomicStore, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *StudentService {
	return &StudentService{
		users:       users,
		students:    students,
		store:       store,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Pagination describes one page of a listing
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

// StudentListResponse is one page of students
type StudentListResponse struct {
	Students   []*StudentResponse `json:"students"`
	Pagination Pagination         `json:"pagination"`
}

// List returns a page of students, newest first.
func (s *StudentService) List(ctx context.Context, page, limit int) (*StudentListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	total, err := s.students.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count students", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	students, err := s.students.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list students", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, studentModelToResponse(student, nil))
	}

	pages := int((total + int64(limit) - 1) / int64(limit))

	return &StudentListResponse{
		Students: responses,
		Pagination: Pagination{
			Current: page,
			Pages:   pages,
			Total:   total,
			Limit:   limit,
		},
	}, nil
}

// Get returns a single student with the verification invariant applied
// against the owning user.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentResponse, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get student", slog.String("student_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.GetByID(ctx, student.UserID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get owning user", slog.String("student_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return studentModelToResponse(student, user), nil
}

// Create provisions a student account: the User and the Student profile
// are created in one transaction, same as self-service signup.
func (s *StudentService) Create(ctx context.Context, name, email, course, password string) (*StudentResponse, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	course = strings.TrimSpace(course)

	if name == "" || course == "" {
		return nil, models.ErrMissingProfileFields
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
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
		Role:         models.RoleStudent,
	}
	student := &models.Student{
		Name:       name,
		Course:     course,
		EnrolledAt: time.Now(),
	}

	createdUser, createdStudent, err := s.store.RegisterUser(ctx, user, student)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create student", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("student created", slog.String("student_id", createdStudent.ID), slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("student_created", createdUser.ID, map[string]string{"student_id": createdStudent.ID})

	return studentModelToResponse(createdStudent, createdUser), nil
}

// Update changes name, course or email. An email change is written to the
// Student and the owning User in the same transaction so the two never
// diverge.
func (s *StudentService) Update(ctx context.Context, id, name, email, course string) (*StudentResponse, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	course = strings.TrimSpace(course)

	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get student", slog.String("student_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if email != "" && email != student.Email {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check email", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if existing != nil && existing.ID != student.UserID {
			return nil, models.ErrDuplicateEmail
		}
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

	updated, err := s.store.UpdateStudentProfile(ctx, student)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to update student", slog.String("student_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	owner, err := s.users.GetByID(ctx, updated.UserID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get owning user", slog.String("student_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("student updated", slog.String("student_id", id))
	return studentModelToResponse(updated, owner), nil
}

// Delete removes the owning User; the Student profile and any pending
// tokens are removed by the cascade.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get student", slog.String("student_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.Delete(ctx, student.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", student.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("student deleted", slog.String("student_id", id), slog.String("user_id", student.UserID))
	s.auditLogger.LogAccountAction("student_deleted", student.UserID, map[string]string{"student_id": id})

	return nil
}
