package models

import "time"

// Dispatch statuses. The machine is running -> stopped, stopped is terminal.
const (
	DispatchStatusRunning = "running"
	DispatchStatusStopped = "stopped"
)

// Dispatch sources.
const (
	DispatchSourcePin         = "pin"
	DispatchSourceAccessEvent = "access_event"
	DispatchSourceManual      = "manual"
)

// Dispatch is one loading event at a station, from authorization to
// completion. Exactly one of PinUserID / CompanyID identifies who authorized
// it. Liters is the delivered volume, updated from telemetry.
type Dispatch struct {
	ID               int64      `db:"id" json:"id"`
	StationID        string     `db:"station_id" json:"station_id"`
	PinUserID        *int64     `db:"pin_user_id" json:"pin_user_id,omitempty"`
	CompanyID        *int64     `db:"company_id" json:"company_id,omitempty"`
	PinSessionID     *int64     `db:"pin_session_id" json:"pin_session_id,omitempty"`
	AuthorizedLiters float64    `db:"authorized_liters" json:"authorized_liters"`
	Liters           float64    `db:"liters" json:"liters"`
	FlowLMin         *float64   `db:"flow_l_min" json:"flow_l_min,omitempty"`
	Status           string     `db:"status" json:"status"`
	Source           string     `db:"source" json:"source"`
	PhotoPath        *string    `db:"photo_path" json:"photo_path,omitempty"`
	Note             *string    `db:"note" json:"note,omitempty"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	EndedAt          *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// RecentDispatch is the recent-dispatches row joined with company data.
type RecentDispatch struct {
	ID          int64     `json:"id"`
	StartedAt   time.Time `json:"ts"`
	StationID   string    `json:"station_id"`
	Liters      float64   `json:"liters"`
	Status      string    `json:"status"`
	PhotoPath   *string   `json:"photo_path"`
	Note        *string   `json:"note"`
	CompanyID   *int64    `json:"company_id"`
	CompanyName *string   `json:"company"`
	CompanyCode *string   `json:"company_code"`
}
