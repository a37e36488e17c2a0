package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tmcnulty/registrar/internal/database"
	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/repositories"
	"github.com/tmcnulty/registrar/pkg/auth"
)

// TestDB manages a PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("registrar"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Embedded goose migrations, same path the server runs at startup
	if err := database.RunMigrations(ctx, connStr); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	// users cascades to students and action_tokens
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE users CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate users: %w", err)
	}
	return nil
}

// InitializeRepositories creates all repository instances from the database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.UserRepository,
	*repositories.StudentRepository,
	*repositories.ActionTokenRepository,
	*repositories.TxStore,
) {
	users := repositories.NewUserRepository(db)
	students := repositories.NewStudentRepository(db)
	tokens := repositories.NewActionTokenRepository(db)
	store := repositories.NewTxStore(db, users, students, tokens)
	return users, students, tokens, store
}

// SeedUser inserts a test user with a hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password, role string, verified bool) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, role, email_verified, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW(), NOW())
		RETURNING id, email, password_hash, role, email_verified, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword, role, verified).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}

// SeedStudent inserts a student profile owned by userID
func SeedStudent(ctx context.Context, pool *pgxpool.Pool, userID, name, email, course string, verified bool) (*models.Student, error) {
	query := `
		INSERT INTO students (id, user_id, name, email, course, enrolled_at, verified, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW(), $5, NOW(), NOW())
		RETURNING id, user_id, name, email, course, enrolled_at, verified, created_at, updated_at
	`

	var student models.Student
	err := pool.QueryRow(ctx, query, userID, name, email, course, verified).Scan(
		&student.ID,
		&student.UserID,
		&student.Name,
		&student.Email,
		&student.Course,
		&student.EnrolledAt,
		&student.Verified,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert student: %w", err)
	}

	return &student, nil
}

// SeedActionToken creates a pending token for userID and returns the plain token
func SeedActionToken(ctx context.Context, pool *pgxpool.Pool, userID, purpose string, ttl time.Duration) (string, error) {
	plain := "test-token-" + purpose + "-" + userID
	tokenHash := auth.HashActionToken(plain)

	query := `
		INSERT INTO action_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW() + $4::interval, NOW())
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()
	`

	interval := fmt.Sprintf("%d seconds", int(ttl.Seconds()))
	if _, err := pool.Exec(ctx, query, userID, purpose, tokenHash, interval); err != nil {
		return "", fmt.Errorf("failed to insert action token: %w", err)
	}

	return plain, nil
}
