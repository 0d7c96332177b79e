package models

import "time"

// Credential is a PIN identity allowed to operate a station. The raw PIN is
// never stored, only its digest. Rows are disabled, never deleted.
type Credential struct {
	ID          int64      `db:"id" json:"id"`
	PinHash     string     `db:"pin_hash" json:"-"`
	Enabled     bool       `db:"enabled" json:"enabled"`
	Tries       int        `db:"tries" json:"tries"`
	LockedUntil *time.Time `db:"locked_until" json:"locked_until,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Locked reports whether the credential is under an active lockout at ts.
func (c *Credential) Locked(ts time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(ts)
}
