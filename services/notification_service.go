//go:generate go run go.uber.org/mock/mockgen -source=notification_service.go -destination=../mocks/mock_notification_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/repositories"
)

type INotificationService interface {
	Notify(ctx context.Context, n domain.Notification) error
	ListForUser(userID string, onlyUnread bool) ([]domain.Notification, error)
	MarkRead(userID string, id uuid.UUID) error
	Welcome(ctx context.Context, userID, username string) error
	NewMessage(ctx context.Context, recipientID string, msg domain.Message, sender domain.Identity) error
	AddedToRoom(ctx context.Context, userID string, room domain.Room) error
}

// NotificationService persists notifications and pushes them to the
// user's private notify group. Persistence is the contract; the push is
// best effort and only reaches the user if they are connected.
type NotificationService struct {
	log        *slog.Logger
	bus        contract.Bus
	repo       repositories.INotificationRepository
	monitoring *observability.MonitoringManager
}

func NewNotificationService(
	log *slog.Logger,
	bus contract.Bus,
	repo repositories.INotificationRepository,
	monitoring *observability.MonitoringManager,
) *NotificationService {
	return &NotificationService{log: log, bus: bus, repo: repo, monitoring: monitoring}
}

func (s *NotificationService) Notify(ctx context.Context, n domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = timeNow()
	}

	if err := s.repo.Store(n); err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}

	payload, err := event.Encode(event.NewNotification(n))
	if err != nil {
		s.log.Warn("Failed to encode notification", "notification_id", n.ID, "err", err)
		return nil
	}
	if _, err := s.bus.Publish(ctx, domain.NotifyGroupName(n.UserID), "", payload); err != nil {
		s.log.Warn("Failed to push notification", "user_id", n.UserID, "err", err)
		return nil
	}
	s.monitoring.IncrNotificationsSent()
	return nil
}

func (s *NotificationService) ListForUser(userID string, onlyUnread bool) ([]domain.Notification, error) {
	return s.repo.ListByUser(userID, onlyUnread)
}

func (s *NotificationService) MarkRead(userID string, id uuid.UUID) error {
	return s.repo.MarkRead(userID, id)
}

func (s *NotificationService) Welcome(ctx context.Context, userID, username string) error {
	return s.Notify(ctx, domain.Notification{
		UserID: userID,
		Title:  "Welcome",
		Body:   fmt.Sprintf("Welcome to the chat, %s!", username),
		Type:   domain.NotifWelcome,
	})
}

func (s *NotificationService) NewMessage(ctx context.Context, recipientID string, msg domain.Message, sender domain.Identity) error {
	return s.Notify(ctx, domain.Notification{
		UserID:          recipientID,
		Title:           fmt.Sprintf("New message from %s", sender.Username),
		Body:            preview(msg.Content),
		Type:            domain.NotifMessage,
		RelatedObjectID: msg.ID.String(),
	})
}

func (s *NotificationService) AddedToRoom(ctx context.Context, userID string, room domain.Room) error {
	return s.Notify(ctx, domain.Notification{
		UserID:          userID,
		Title:           "Added to a room",
		Body:            fmt.Sprintf("You were added to %s", room.Name),
		Type:            domain.NotifChat,
		RelatedObjectID: room.ID,
	})
}

const previewLength = 80

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
