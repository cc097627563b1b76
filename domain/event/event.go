// Package event defines the outbound wire events pushed to live sessions.
// Every event marshals directly to the JSON frame a client receives.
package event

import (
	"encoding/json"
	"time"

	"chat-relay/domain"
)

type DomainEvent interface {
	Group() string
}

type Sender struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
}

type MessagePayload struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Language  string  `json:"language,omitempty"`
	Sender    Sender  `json:"sender"`
	ReplyTo   *string `json:"reply_to,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type ChatMessage struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`

	group string
}

func NewChatMessage(msg domain.Message, sender domain.Identity) ChatMessage {
	var replyTo *string
	if msg.ReplyTo != nil {
		s := msg.ReplyTo.String()
		replyTo = &s
	}
	return ChatMessage{
		Type: "chat_message",
		Message: MessagePayload{
			ID:        msg.ID.String(),
			Content:   msg.Content,
			Language:  msg.Language,
			Sender:    Sender{ID: sender.UserID, Username: sender.Username, ProfileImage: sender.ProfileImage},
			ReplyTo:   replyTo,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339Nano),
		},
		group: domain.RoomGroupName(msg.RoomID),
	}
}

func (e ChatMessage) Group() string { return e.group }

type Typing struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`

	group string
}

func NewTyping(roomID string, user domain.Identity, isTyping bool) Typing {
	return Typing{
		Type:     "typing",
		UserID:   user.UserID,
		Username: user.Username,
		IsTyping: isTyping,
		group:    domain.RoomGroupName(roomID),
	}
}

func (e Typing) Group() string { return e.group }

type Notification struct {
	Type         string              `json:"type"`
	Notification domain.Notification `json:"notification"`

	group string
}

func NewNotification(n domain.Notification) Notification {
	return Notification{
		Type:         "notification",
		Notification: n,
		group:        domain.NotifyGroupName(n.UserID),
	}
}

func (e Notification) Group() string { return e.group }

// StatusUpdate is echoed to the message sender only, never to the whole
// room, so one recipient's read state is not leaked to the others.
type StatusUpdate struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`

	group string
}

func NewStatusUpdate(senderID string, status domain.DeliveryStatus) StatusUpdate {
	return StatusUpdate{
		Type:      "status_update",
		MessageID: status.MessageID.String(),
		UserID:    status.UserID,
		Status:    string(status.State),
		group:     domain.NotifyGroupName(senderID),
	}
}

func (e StatusUpdate) Group() string { return e.group }

// Encode renders an event to its wire form.
func Encode(e DomainEvent) ([]byte, error) {
	return json.Marshal(e)
}
