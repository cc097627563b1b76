package domain

import "time"

// PresenceRecord is a user's online flag and last-seen timestamp.
// It is flipped on the first connect and the last disconnect only.
type PresenceRecord struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}
