package repository

import (
	"context"
	"database/sql"
	"errors"

	"cargadero/internal/models"
)

// ErrStationNotFound indicates a missing station row.
var ErrStationNotFound = errors.New("station not found")

// StationRepository stores station reference data.
type StationRepository struct {
	db Querier
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *StationRepository) WithTx(tx *sql.Tx) *StationRepository {
	return &StationRepository{db: tx}
}

// Get returns one station by id.
func (r *StationRepository) Get(ctx context.Context, id string) (*models.Station, error) {
	const query = `
		SELECT id, name, active, device_ip, created_at
		FROM station
		WHERE id = $1
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Active, &s.DeviceIP, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all stations ordered by id.
func (r *StationRepository) List(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT id, name, active, device_ip, created_at
		FROM station
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Active, &s.DeviceIP, &s.CreatedAt); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

// Upsert creates or updates a station by id.
func (r *StationRepository) Upsert(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO station (id, name, active, device_ip)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			device_ip = EXCLUDED.device_ip
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, station.ID, station.Name, station.Active, station.DeviceIP).
		Scan(&station.CreatedAt)
}

// SetActive flips the active flag, returning the updated row.
func (r *StationRepository) SetActive(ctx context.Context, id string, active bool) (*models.Station, error) {
	const query = `
		UPDATE station
		SET active = $2
		WHERE id = $1
		RETURNING id, name, active, device_ip, created_at
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, id, active).Scan(&s.ID, &s.Name, &s.Active, &s.DeviceIP, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
