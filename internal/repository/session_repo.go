package repository

import (
	"context"
	"database/sql"
	"errors"

	"cargadero/internal/models"
)

// ErrSessionNotFound indicates no active session for the pair.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles persistence of pin_session rows.
type SessionRepository struct {
	db Querier
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// FindActive returns the most recently started active session for the
// (credential, station) pair.
func (r *SessionRepository) FindActive(ctx context.Context, pinUserID int64, stationID string) (*models.PinSession, error) {
	const query = `
		SELECT id, pin_user_id, station_id, max_liters, status, started_at
		FROM pin_session
		WHERE pin_user_id = $1 AND station_id = $2 AND status = 'active'
		ORDER BY started_at DESC
		LIMIT 1
	`
	var s models.PinSession
	err := r.db.QueryRowContext(ctx, query, pinUserID, stationID).
		Scan(&s.ID, &s.PinUserID, &s.StationID, &s.MaxLiters, &s.Status, &s.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new active session.
func (r *SessionRepository) Create(ctx context.Context, pinUserID int64, stationID string, maxLiters float64) (int64, error) {
	const query = `
		INSERT INTO pin_session (pin_user_id, station_id, max_liters, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, pinUserID, stationID, maxLiters).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
