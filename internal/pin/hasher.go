package pin

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher defines the PIN digest contract. The digest must be deterministic so
// credentials can be looked up by it.
type Hasher interface {
	Digest(pin string) string
}

// SHA256Hasher hex-encodes the SHA-256 of the trimmed PIN, matching the
// format stored in pin_user.pin_hash.
type SHA256Hasher struct{}

// NewSHA256Hasher returns the digest implementation used for stored PINs.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Digest computes the stored form of a raw PIN.
func (h *SHA256Hasher) Digest(pin string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(pin)))
	return hex.EncodeToString(sum[:])
}
