package repository

import (
	"context"
	"database/sql"

	"cargadero/internal/models"
)

// TelemetryRepository persists flow meter readings.
type TelemetryRepository struct {
	db Querier
}

// NewTelemetryRepository returns repository.
func NewTelemetryRepository(db *sql.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *TelemetryRepository) WithTx(tx *sql.Tx) *TelemetryRepository {
	return &TelemetryRepository{db: tx}
}

// Insert stores a new immutable telemetry row.
func (r *TelemetryRepository) Insert(ctx context.Context, t *models.FlowTelemetry) (int64, error) {
	const query = `
		INSERT INTO flow_telemetry (station_id, dispatch_id, liters_total, flow_l_min, pulses, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ts
	`
	err := r.db.QueryRowContext(ctx, query,
		t.StationID,
		t.DispatchID,
		t.LitersTotal,
		t.FlowLMin,
		t.Pulses,
		t.Meta,
	).Scan(&t.ID, &t.RecordedAt)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}
