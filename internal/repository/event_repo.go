package repository

import (
	"context"
	"database/sql"

	"cargadero/internal/models"
)

// EventRepository persists the append-only access and pump event logs.
type EventRepository struct {
	db Querier
}

// NewEventRepository returns repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *EventRepository) WithTx(tx *sql.Tx) *EventRepository {
	return &EventRepository{db: tx}
}

// InsertAccessEvent appends a normalized door controller event to the audit log.
func (r *EventRepository) InsertAccessEvent(ctx context.Context, ev *models.AccessEvent) (int64, error) {
	const query = `
		INSERT INTO access_event
			(station_id, ts, granted, result, reason,
			 door_index, reader_index, person_id, person_name,
			 credential_type, credential_value, direction,
			 pic_url, snapshot_path, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, $14)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		ev.StationID,
		ev.Ts,
		ev.Granted,
		ev.Result,
		ev.Reason,
		ev.DoorIndex,
		ev.ReaderIndex,
		ev.PersonID,
		ev.PersonName,
		ev.CredentialType,
		ev.CredentialValue,
		ev.Direction,
		ev.PicURL,
		ev.Raw,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	ev.ID = id
	return id, nil
}

// InsertPumpEvent appends a digital input transition record.
func (r *EventRepository) InsertPumpEvent(ctx context.Context, ev *models.PumpEvent) error {
	const query = `
		INSERT INTO pump_event (station_id, dispatch_id, ts, state, source, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		ev.StationID,
		ev.DispatchID,
		ev.Ts,
		ev.State,
		ev.Source,
		ev.Note,
	).Scan(&ev.ID)
}
