package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/tmcnulty/registrar/internal/database"
	"github.com/tmcnulty/registrar/internal/models"
)

// TxStore composes the compound writes that must be all-or-nothing:
// user+student creation, verified-flag pairing, and password reset. Each
// method runs inside a single transaction so no partial state is ever
// visible.
type TxStore struct {
	db       *database.DB
	users    *UserRepository
	students *StudentRepository
	tokens   *ActionTokenRepository
}

func NewTxStore(db *database.DB, users *UserRepository, students *StudentRepository, tokens *ActionTokenRepository) *TxStore {
	return &TxStore{
		db:       db,
		users:    users,
		students: students,
		tokens:   tokens,
	}
}

// RegisterUser creates a User and, when a profile is given, its Student in
// one transaction. On any failure neither record remains.
func (s *TxStore) RegisterUser(ctx context.Context, user *models.User, student *models.Student) (*models.User, *models.Student, error) {
	var createdUser *models.User
	var createdStudent *models.Student

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error

		createdUser, err = s.users.WithTx(tx).Create(ctx, user)
		if err != nil {
			return err
		}

		if student != nil {
			student.UserID = createdUser.ID
			student.Email = createdUser.Email

			createdStudent, err = s.students.WithTx(tx).Create(ctx, student)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return createdUser, createdStudent, nil
}

// ConfirmVerification consumes an unexpired verification token and sets
// both verified flags in the same transaction. The flags can never diverge
// through this path: either both updates commit or neither does.
func (s *TxStore) ConfirmVerification(ctx context.Context, tokenHash string) (string, error) {
	var userID string

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error

		userID, err = s.tokens.WithTx(tx).Consume(ctx, tokenHash, models.PurposeEmailVerification)
		if err != nil {
			return err
		}

		if err := s.students.WithTx(tx).MarkVerified(ctx, userID); err != nil {
			return err
		}

		return s.users.WithTx(tx).MarkEmailVerified(ctx, userID)
	})
	if err != nil {
		return "", err
	}

	return userID, nil
}

// ResetPassword consumes an unexpired reset token and replaces the
// password hash in the same transaction. The consumed token cannot be
// replayed; password_changed_at revokes older sessions.
func (s *TxStore) ResetPassword(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	var userID string

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error

		userID, err = s.tokens.WithTx(tx).Consume(ctx, tokenHash, models.PurposePasswordReset)
		if err != nil {
			return err
		}

		return s.users.WithTx(tx).UpdatePassword(ctx, userID, passwordHash)
	})
	if err != nil {
		return "", err
	}

	return userID, nil
}

// UpdateStudentProfile writes the student row and keeps the owning User's
// email in lockstep, atomically.
func (s *TxStore) UpdateStudentProfile(ctx context.Context, student *models.Student) (*models.Student, error) {
	var updated *models.Student

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.users.WithTx(tx).UpdateEmail(ctx, student.UserID, student.Email); err != nil {
			return err
		}

		var err error
		updated, err = s.students.WithTx(tx).Update(ctx, student.ID, student)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
