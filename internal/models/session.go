package models

import "time"

// Session statuses.
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// PinSession groups consecutive dispatches by one credential at one station
// under a single authorization window. At most one active row per
// (credential, station) pair.
type PinSession struct {
	ID        int64     `db:"id" json:"id"`
	PinUserID int64     `db:"pin_user_id" json:"pin_user_id"`
	StationID string    `db:"station_id" json:"station_id"`
	MaxLiters float64   `db:"max_liters" json:"max_liters"`
	Status    string    `db:"status" json:"status"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
}
