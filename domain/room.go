package domain

import "time"

type RoomType string

const (
	RoomPrivate RoomType = "private"
	RoomGroup   RoomType = "group"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        RoomType  `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type Membership struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	IsMuted  bool      `json:"is_muted"`
}

// RoomGroupName is the broadcast group carrying a room's live traffic.
func RoomGroupName(roomID string) string {
	return "room:" + roomID
}

// NotifyGroupName is the per-user broadcast group for notifications and
// receipt echoes.
func NotifyGroupName(userID string) string {
	return "notify:" + userID
}
