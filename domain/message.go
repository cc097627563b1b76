// Package domain contains core concepts of the chat system.
// This file defines messages and per-recipient delivery state.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
	MessageAudio MessageType = "audio"
	MessageVideo MessageType = "video"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageAudio, MessageVideo:
		return true
	}
	return false
}

// Message represents a chat message. Once created it is immutable except
// for the edit fields; room and sender never change.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	RoomID    string      `json:"room_id"`
	SenderID  string      `json:"sender_id"`
	Content   string      `json:"content"`
	Language  string      `json:"language,omitempty"`
	Type      MessageType `json:"type"`
	ReplyTo   *uuid.UUID  `json:"reply_to,omitempty"`
	IsEdited  bool        `json:"is_edited"`
	EditedAt  *time.Time  `json:"edited_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type DeliveryState string

const (
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
)

// rank orders delivery states: sent < delivered < read.
func (s DeliveryState) rank() int {
	switch s {
	case StateSent:
		return 0
	case StateDelivered:
		return 1
	case StateRead:
		return 2
	}
	return -1
}

func (s DeliveryState) Valid() bool {
	return s.rank() >= 0
}

// AtLeast reports whether s is equal to or further along than other.
func (s DeliveryState) AtLeast(other DeliveryState) bool {
	return s.rank() >= other.rank()
}

// DeliveryStatus is the acknowledgment state of one message for one
// recipient. The state is monotonic: it never moves backwards.
type DeliveryStatus struct {
	MessageID uuid.UUID     `json:"message_id"`
	UserID    string        `json:"user_id"`
	State     DeliveryState `json:"state"`
	UpdatedAt time.Time     `json:"updated_at"`
}
