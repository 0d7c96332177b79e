package models

import "time"

// Photo is evidence image metadata for a dispatch. Created once per upload,
// never mutated.
type Photo struct {
	ID          int64     `db:"id" json:"id"`
	DispatchID  int64     `db:"dispatch_id" json:"dispatch_id"`
	CameraID    *string   `db:"camera_id" json:"camera_id,omitempty"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	Meta        []byte    `db:"meta" json:"meta,omitempty"`
	Ts          time.Time `db:"ts" json:"ts"`
}
