package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cargadero/internal/models"
)

// ErrDispatchNotFound indicates a missing dispatch row.
var ErrDispatchNotFound = errors.New("dispatch not found")

// DispatchRepository handles persistence of dispatch rows.
type DispatchRepository struct {
	db Querier
}

// NewDispatchRepository returns repository.
func NewDispatchRepository(db *sql.DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *DispatchRepository) WithTx(tx *sql.Tx) *DispatchRepository {
	return &DispatchRepository{db: tx}
}

// Insert creates a new running dispatch. Concurrent running dispatches at one
// station are allowed; callers query for the newest one when they care.
func (r *DispatchRepository) Insert(ctx context.Context, d *models.Dispatch) (int64, error) {
	const query = `
		INSERT INTO dispatch
			(station_id, pin_user_id, company_id, pin_session_id,
			 authorized_liters, status, source, photo_path, note)
		VALUES ($1, $2, $3, $4, $5, 'running', $6, $7, $8)
		RETURNING id, started_at
	`
	err := r.db.QueryRowContext(ctx, query,
		d.StationID,
		d.PinUserID,
		d.CompanyID,
		d.PinSessionID,
		d.AuthorizedLiters,
		d.Source,
		d.PhotoPath,
		d.Note,
	).Scan(&d.ID, &d.StartedAt)
	if err != nil {
		return 0, err
	}
	d.Status = models.DispatchStatusRunning
	return d.ID, nil
}

// Close transitions a dispatch to stopped. Closing an already-closed or
// nonexistent dispatch affects zero rows and is not an error.
func (r *DispatchRepository) Close(ctx context.Context, id int64, at time.Time) error {
	const query = `
		UPDATE dispatch
		SET status = 'stopped', ended_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'running'
	`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

// UpdateDeliveredLiters applies a cumulative meter reading, clamped at zero.
// Last write wins.
func (r *DispatchRepository) UpdateDeliveredLiters(ctx context.Context, id int64, litersTotal float64) error {
	const query = `
		UPDATE dispatch
		SET liters = GREATEST(0, $2), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, litersTotal)
	return err
}

// SetLiters overrides the delivered volume (manual correction).
func (r *DispatchRepository) SetLiters(ctx context.Context, id int64, liters float64) error {
	const query = `
		UPDATE dispatch SET liters = $2, updated_at = NOW() WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, liters)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDispatchNotFound
	}
	return nil
}

// SetPhotoPath points the dispatch at its evidence photo.
func (r *DispatchRepository) SetPhotoPath(ctx context.Context, id int64, photoPath string) error {
	const query = `
		UPDATE dispatch SET photo_path = $2, updated_at = NOW() WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, photoPath)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDispatchNotFound
	}
	return nil
}

// Exists reports whether a dispatch row exists.
func (r *DispatchRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 FROM dispatch WHERE id = $1`
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns one dispatch by id.
func (r *DispatchRepository) Get(ctx context.Context, id int64) (*models.Dispatch, error) {
	const query = `
		SELECT id, station_id, pin_user_id, company_id, pin_session_id,
		       authorized_liters, liters, flow_l_min, status, source,
		       photo_path, note, started_at, ended_at, updated_at
		FROM dispatch
		WHERE id = $1
	`
	var d models.Dispatch
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.StationID, &d.PinUserID, &d.CompanyID, &d.PinSessionID,
		&d.AuthorizedLiters, &d.Liters, &d.FlowLMin, &d.Status, &d.Source,
		&d.PhotoPath, &d.Note, &d.StartedAt, &d.EndedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDispatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// LatestRunning returns the newest running dispatch at a station, or
// ErrDispatchNotFound when none is running.
func (r *DispatchRepository) LatestRunning(ctx context.Context, stationID string) (*models.Dispatch, error) {
	const query = `
		SELECT id, station_id, pin_user_id, company_id, pin_session_id,
		       authorized_liters, liters, flow_l_min, status, source,
		       photo_path, note, started_at, ended_at, updated_at
		FROM dispatch
		WHERE station_id = $1 AND status = 'running'
		ORDER BY started_at DESC
		LIMIT 1
	`
	var d models.Dispatch
	err := r.db.QueryRowContext(ctx, query, stationID).Scan(
		&d.ID, &d.StationID, &d.PinUserID, &d.CompanyID, &d.PinSessionID,
		&d.AuthorizedLiters, &d.Liters, &d.FlowLMin, &d.Status, &d.Source,
		&d.PhotoPath, &d.Note, &d.StartedAt, &d.EndedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDispatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Recent returns the newest dispatches at a station joined with company data.
func (r *DispatchRepository) Recent(ctx context.Context, stationID string, limit int) ([]models.RecentDispatch, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT d.id, d.started_at, d.station_id, d.liters, d.status, d.photo_path, d.note,
		       c.id, c.name, c.code
		FROM dispatch d
		LEFT JOIN company c ON c.id = d.company_id
		WHERE d.station_id = $1
		ORDER BY d.started_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.RecentDispatch
	for rows.Next() {
		var item models.RecentDispatch
		if err := rows.Scan(
			&item.ID, &item.StartedAt, &item.StationID, &item.Liters, &item.Status,
			&item.PhotoPath, &item.Note, &item.CompanyID, &item.CompanyName, &item.CompanyCode,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
