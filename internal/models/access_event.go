package models

import "time"

// AccessEvent is the append-only audit record of every normalized door
// controller event, granted or denied. Rows are never updated or deleted.
type AccessEvent struct {
	ID              int64     `db:"id" json:"id"`
	StationID       string    `db:"station_id" json:"station_id"`
	Ts              time.Time `db:"ts" json:"ts"`
	Granted         bool      `db:"granted" json:"granted"`
	Result          string    `db:"result" json:"result"`
	Reason          string    `db:"reason" json:"reason"`
	DoorIndex       *int      `db:"door_index" json:"door_index,omitempty"`
	ReaderIndex     *int      `db:"reader_index" json:"reader_index,omitempty"`
	PersonID        string    `db:"person_id" json:"person_id"`
	PersonName      string    `db:"person_name" json:"person_name"`
	CredentialType  string    `db:"credential_type" json:"credential_type"`
	CredentialValue string    `db:"credential_value" json:"credential_value"`
	Direction       string    `db:"direction" json:"direction"`
	PicURL          string    `db:"pic_url" json:"pic_url"`
	Raw             []byte    `db:"raw" json:"-"`
}
