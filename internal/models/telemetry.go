package models

import "time"

// FlowTelemetry is an immutable flow meter reading. LitersTotal is the
// cumulative counter as reported by the meter, not a delta.
type FlowTelemetry struct {
	ID          int64     `db:"id" json:"id"`
	StationID   string    `db:"station_id" json:"station_id"`
	DispatchID  *int64    `db:"dispatch_id" json:"dispatch_id,omitempty"`
	LitersTotal *float64  `db:"liters_total" json:"liters_total,omitempty"`
	FlowLMin    *float64  `db:"flow_l_min" json:"flow_l_min,omitempty"`
	Pulses      *int64    `db:"pulses" json:"pulses,omitempty"`
	Meta        []byte    `db:"meta" json:"meta,omitempty"`
	RecordedAt  time.Time `db:"ts" json:"ts"`
}
