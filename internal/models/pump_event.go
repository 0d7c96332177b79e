package models

import "time"

// Pump event states derived from digital input transitions.
const (
	PumpEventStartPressed = "start_pressed"
	PumpEventStopPressed  = "stop_pressed"
	PumpEventDIChange     = "di_change"
)

// PumpEvent is an append-only record of a digital input transition at a
// station, linked to the dispatch that was running at the time, if any.
type PumpEvent struct {
	ID         int64     `db:"id" json:"id"`
	StationID  string    `db:"station_id" json:"station_id"`
	DispatchID *int64    `db:"dispatch_id" json:"dispatch_id,omitempty"`
	Ts         time.Time `db:"ts" json:"ts"`
	State      string    `db:"state" json:"state"`
	Source     string    `db:"source" json:"source"`
	Note       string    `db:"note" json:"note"`
}
