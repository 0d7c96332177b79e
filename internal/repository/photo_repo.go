package repository

import (
	"context"
	"database/sql"

	"cargadero/internal/models"
)

// PhotoRepository persists evidence image metadata.
type PhotoRepository struct {
	db Querier
}

// NewPhotoRepository returns repository.
func NewPhotoRepository(db *sql.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *PhotoRepository) WithTx(tx *sql.Tx) *PhotoRepository {
	return &PhotoRepository{db: tx}
}

// Insert stores a new photo record and fills in id and timestamp.
func (r *PhotoRepository) Insert(ctx context.Context, p *models.Photo) error {
	const query = `
		INSERT INTO photo (dispatch_id, camera_id, storage_path, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id, ts
	`
	return r.db.QueryRowContext(ctx, query,
		p.DispatchID,
		p.CameraID,
		p.StoragePath,
		p.Meta,
	).Scan(&p.ID, &p.Ts)
}
