package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal attached to a live session.
// It carries only what outbound payloads need about the sender.
type Identity struct {
	UserID       string
	Username     string
	ProfileImage string
}
