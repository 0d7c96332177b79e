package models

import "time"

// Station is a physical dispensing/access point. The id is an opaque string
// chosen by the operator ("PALACIO"). DeviceIP points at the door controller
// for access-controlled stations.
type Station struct {
	ID        string    `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	DeviceIP  *string   `db:"device_ip" json:"device_ip,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
