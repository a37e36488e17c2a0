package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tmcnulty/registrar/internal/database"
	"github.com/tmcnulty/registrar/internal/models"
)

type StudentRepository struct {
	q database.Querier
}

func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{q: db.Pool}
}

// WithTx returns a repository bound to the given transaction.
func (r *StudentRepository) WithTx(tx pgx.Tx) *StudentRepository {
	return &StudentRepository{q: tx}
}

const studentColumns = `id, user_id, name, email, course, enrolled_at, verified, created_at, updated_at`

func scanStudentRow(scanner rowScanner) (*models.Student, error) {
	var student models.Student

	err := scanner.Scan(
		&student.ID, &student.UserID, &student.Name, &student.Email,
		&student.Course, &student.EnrolledAt, &student.Verified,
		&student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &student, nil
}

func scanStudentRows(rows pgx.Rows) ([]*models.Student, error) {
	defer rows.Close()

	students := make([]*models.Student, 0)

	for rows.Next() {
		student, err := scanStudentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return students, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	return scanStudentRow(r.q.QueryRow(ctx, query, id))
}

func (r *StudentRepository) GetByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1`
	return scanStudentRow(r.q.QueryRow(ctx, query, userID))
}

// List reports each student's verified flag combined with the owning
// user's email_verified, so callers see the same view Get computes.
func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	query := `
		SELECT s.id, s.user_id, s.name, s.email, s.course, s.enrolled_at,
			(s.verified OR u.email_verified), s.created_at, s.updated_at
		FROM students s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}

	return scanStudentRows(rows)
}

func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	student.ID = uuid.New().String()

	now := time.Now()
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = now
	}
	student.CreatedAt = now
	student.UpdatedAt = now

	query := `
		INSERT INTO students (id, user_id, name, email, course, enrolled_at, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + studentColumns

	return scanStudentRow(r.q.QueryRow(ctx, query,
		student.ID, student.UserID, student.Name, student.Email,
		student.Course, student.EnrolledAt, student.Verified,
		student.CreatedAt, student.UpdatedAt,
	))
}

func (r *StudentRepository) Update(ctx context.Context, id string, student *models.Student) (*models.Student, error) {
	query := `
		UPDATE students SET name = $1, email = $2, course = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + studentColumns

	return scanStudentRow(r.q.QueryRow(ctx, query,
		student.Name, student.Email, student.Course, id,
	))
}

// MarkVerified sets the student's verified flag by owning user. Callers
// pairing it with the user flag must run both inside one transaction.
func (r *StudentRepository) MarkVerified(ctx context.Context, userID string) error {
	query := `UPDATE students SET verified = TRUE, updated_at = NOW() WHERE user_id = $1`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RepairVerifiedDrift pushes each verified flag to the OR of the pair, in
// both directions. Confirmation writes both flags atomically, so this is
// defense-in-depth only; running it twice changes nothing.
func (r *StudentRepository) RepairVerifiedDrift(ctx context.Context) (int64, error) {
	userQuery := `
		UPDATE users SET email_verified = TRUE, updated_at = NOW()
		FROM students
		WHERE students.user_id = users.id AND students.verified AND NOT users.email_verified
	`
	studentQuery := `
		UPDATE students SET verified = TRUE, updated_at = NOW()
		FROM users
		WHERE students.user_id = users.id AND users.email_verified AND NOT students.verified
	`

	var repaired int64

	result, err := r.q.Exec(ctx, userQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to repair user flags: %w", err)
	}
	repaired += result.RowsAffected()

	result, err = r.q.Exec(ctx, studentQuery)
	if err != nil {
		return repaired, fmt.Errorf("failed to repair student flags: %w", err)
	}
	repaired += result.RowsAffected()

	return repaired, nil
}
