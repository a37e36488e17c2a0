package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tmcnulty/registrar/internal/database"
	"github.com/tmcnulty/registrar/internal/models"
)

type UserRepository struct {
	q database.Querier
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// WithTx returns a repository bound to the given transaction. The receiver
// is unchanged.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, email, password_hash, role, email_verified, password_changed_at, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordChangedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role,
		&user.EmailVerified, &passwordChangedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.PasswordChangedAt = passwordChangedAt
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.q.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.q.QueryRow(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	query := `
		INSERT INTO users (id, email, password_hash, role, email_verified, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	return scanUserRow(r.q.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role,
		user.EmailVerified, user.PasswordChangedAt, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateEmail changes a user's email address.
func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	query := `UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.Exec(ctx, query, email, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash and stamps password_changed_at,
// which invalidates session tokens issued earlier.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, password_changed_at = NOW(), updated_at = NOW() WHERE id = $2`

	result, err := r.q.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkEmailVerified sets the email-verified flag. Callers pairing it with
// the student flag must run both inside one transaction.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
