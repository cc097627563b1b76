package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifMessage       NotificationType = "message"
	NotifChat          NotificationType = "chat"
	NotifFriendRequest NotificationType = "friend_request"
	NotifAccount       NotificationType = "account"
	NotifWelcome       NotificationType = "welcome"
	NotifSystem        NotificationType = "system"
)

type Notification struct {
	ID              uuid.UUID        `json:"id"`
	UserID          string           `json:"user_id"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	Type            NotificationType `json:"type"`
	RelatedObjectID string           `json:"related_object_id,omitempty"`
	IsRead          bool             `json:"is_read"`
	CreatedAt       time.Time        `json:"created_at"`
	ReadAt          *time.Time       `json:"read_at,omitempty"`
}
