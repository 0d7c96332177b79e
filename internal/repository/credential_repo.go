package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cargadero/internal/models"
)

// ErrCredentialNotFound indicates no credential matches the presented digest.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository handles persistence of pin_user rows.
type CredentialRepository struct {
	db Querier
}

// NewCredentialRepository returns repository.
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *CredentialRepository) WithTx(tx *sql.Tx) *CredentialRepository {
	return &CredentialRepository{db: tx}
}

// GetByPinHash looks a credential up by its stored digest.
func (r *CredentialRepository) GetByPinHash(ctx context.Context, pinHash string) (*models.Credential, error) {
	const query = `
		SELECT id, pin_hash, enabled, tries, locked_until, created_at
		FROM pin_user
		WHERE pin_hash = $1
	`
	var c models.Credential
	err := r.db.QueryRowContext(ctx, query, pinHash).Scan(
		&c.ID,
		&c.PinHash,
		&c.Enabled,
		&c.Tries,
		&c.LockedUntil,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RegisterFailure bumps the failed-attempt counter and applies the lockout
// once the threshold is reached.
func (r *CredentialRepository) RegisterFailure(ctx context.Context, id int64, maxAttempts int, lockedUntil time.Time) error {
	const query = `
		UPDATE pin_user
		SET tries = tries + 1,
		    locked_until = CASE WHEN tries + 1 >= $2 THEN $3 ELSE locked_until END
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, maxAttempts, lockedUntil)
	return err
}

// RegisterSuccess resets the failed-attempt counter after a verified PIN.
func (r *CredentialRepository) RegisterSuccess(ctx context.Context, id int64) error {
	const query = `
		UPDATE pin_user
		SET tries = 0, locked_until = NULL
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
