package models

import "time"

// Company is a billable entity identified by a unique code. The code doubles
// as the employeeNo provisioned on the door keypad, and the optional PIN is
// the shared keypad password.
type Company struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Pin       *string   `db:"pin" json:"pin,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
