package models

import "time"

// RandomPick memoizes a random selection per client fingerprint so the same
// client keeps seeing the same image for the TTL window. At most one live
// row exists per fingerprint; an expired row is overwritten in place.
// Persisted in the store, not in memory: it has to survive restarts.
type RandomPick struct {
	Fingerprint string    `gorm:"primaryKey;size:32" json:"fingerprint"`
	ChosenIndex int       `gorm:"not null" json:"chosen_index"` // 1-based
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
}
