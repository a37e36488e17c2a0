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

// ActionTokenRepository handles verification and reset token storage
type ActionTokenRepository struct {
	q database.Querier
}

func NewActionTokenRepository(db *database.DB) *ActionTokenRepository {
	return &ActionTokenRepository{q: db.Pool}
}

// WithTx returns a repository bound to the given transaction.
func (r *ActionTokenRepository) WithTx(tx pgx.Tx) *ActionTokenRepository {
	return &ActionTokenRepository{q: tx}
}

// Upsert stores a token for (user, purpose), replacing any prior pending
// token. The UNIQUE(user_id, purpose) constraint keeps a single active
// token per purpose.
func (r *ActionTokenRepository) Upsert(ctx context.Context, userID, purpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
	query := `
		INSERT INTO action_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, purpose)
		DO UPDATE SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = NOW()
		RETURNING id, user_id, purpose, token_hash, expires_at, created_at
	`

	var token models.ActionToken
	err := r.q.QueryRow(ctx, query, uuid.New().String(), userID, purpose, tokenHash, expiresAt).Scan(
		&token.ID, &token.UserID, &token.Purpose, &token.TokenHash,
		&token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Consume atomically deletes an unexpired token matching the hash and
// purpose and returns its owning user ID. A token that is missing, already
// consumed, or expired yields ErrInvalidOrExpiredToken; the cases are not
// distinguishable. Expiry is compared against the database clock so the
// read and the check share one time source.
func (r *ActionTokenRepository) Consume(ctx context.Context, tokenHash, purpose string) (string, error) {
	query := `
		DELETE FROM action_tokens
		WHERE token_hash = $1 AND purpose = $2 AND expires_at > NOW()
		RETURNING user_id
	`

	var userID string
	err := r.q.QueryRow(ctx, query, tokenHash, purpose).Scan(&userID)
	if err != nil {
		if database.MapPostgresError(err) == models.ErrNotFound {
			return "", models.ErrInvalidOrExpiredToken
		}
		return "", database.MapPostgresError(err)
	}

	return userID, nil
}

// DeleteExpired removes tokens past their expiry.
func (r *ActionTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM action_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
