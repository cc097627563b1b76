//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
)

type SendMessageCommand struct {
	RoomID  string
	Sender  domain.Identity
	Content string
	Type    domain.MessageType
	ReplyTo *uuid.UUID
}

type IMessageService interface {
	Send(ctx context.Context, cmd SendMessageCommand) (domain.Message, error)
	UpdateStatus(ctx context.Context, messageID uuid.UUID, userID string, state domain.DeliveryState) error
	Typing(ctx context.Context, roomID string, user domain.Identity, originSessionID string, isTyping bool) error
	History(roomID string, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, roomID, query string, limit int) ([]domain.Message, error)
}

// MessageService is the write path of the chat. Every message goes
// through the same pipeline: authorization, validation, moderation,
// language detection, durable store, then broadcast.
type MessageService struct {
	log           *slog.Logger
	bus           contract.Bus
	messages      repositories.IMessageRepository
	statuses      repositories.IStatusRepository
	rooms         contract.RoomDirectory
	presence      IPresenceService
	notifications INotificationService
	index         *repositories.MessageIndex
	moderator     *moderation.Moderator
	monitoring    *observability.MonitoringManager
	maxContent    int
}

func NewMessageService(
	log *slog.Logger,
	bus contract.Bus,
	messages repositories.IMessageRepository,
	statuses repositories.IStatusRepository,
	rooms contract.RoomDirectory,
	presence IPresenceService,
	notifications INotificationService,
	index *repositories.MessageIndex,
	moderator *moderation.Moderator,
	monitoring *observability.MonitoringManager,
	maxContent int,
) *MessageService {
	return &MessageService{
		log:           log,
		bus:           bus,
		messages:      messages,
		statuses:      statuses,
		rooms:         rooms,
		presence:      presence,
		notifications: notifications,
		index:         index,
		moderator:     moderator,
		monitoring:    monitoring,
		maxContent:    maxContent,
	}
}

// Send validates, persists, and broadcasts a message to its room.
// The broadcast includes the sender, whose client uses the echoed frame
// as the send acknowledgement.
func (s *MessageService) Send(ctx context.Context, cmd SendMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty content", errors.ErrInvalidContent)
	}
	if s.maxContent > 0 && len(content) > s.maxContent {
		return domain.Message{}, fmt.Errorf("%w: content exceeds %d bytes", errors.ErrInvalidContent, s.maxContent)
	}

	msgType := cmd.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	if !msgType.Valid() {
		return domain.Message{}, fmt.Errorf("%w: unknown message type %q", errors.ErrInvalidContent, cmd.Type)
	}

	member, err := s.rooms.IsMember(cmd.RoomID, cmd.Sender.UserID)
	if err != nil {
		return domain.Message{}, err
	}
	if !member {
		return domain.Message{}, errors.ErrAccessDenied
	}

	// A reply to a message that does not exist is not an error worth
	// surfacing to the client; the message is kept, the link dropped.
	replyTo := cmd.ReplyTo
	if replyTo != nil {
		if _, err := s.messages.Get(*replyTo); err != nil {
			s.log.Debug("Dropping unknown reply_to", "reply_to", replyTo, "err", err)
			replyTo = nil
		}
	}

	if s.moderator != nil {
		censored, matched := s.moderator.Censor(content)
		if len(matched) > 0 {
			s.log.Info("Censored message content", "room_id", cmd.RoomID, "words", len(matched))
			content = censored
		}
	}

	msg := domain.Message{
		ID:        uuid.New(),
		RoomID:    cmd.RoomID,
		SenderID:  cmd.Sender.UserID,
		Content:   content,
		Type:      msgType,
		ReplyTo:   replyTo,
		CreatedAt: timeNow(),
	}
	if info := whatlanggo.Detect(content); info.IsReliable() {
		msg.Language = info.Lang.Iso6393()
	}

	members, err := s.rooms.Members(cmd.RoomID)
	if err != nil {
		return domain.Message{}, err
	}
	recipients := make([]string, 0, len(members))
	for _, userID := range members {
		if userID != cmd.Sender.UserID {
			recipients = append(recipients, userID)
		}
	}

	if err := s.messages.Store(msg, recipients); err != nil {
		return domain.Message{}, fmt.Errorf("storing message: %w", err)
	}

	// Search indexing is best effort; a failed index never loses a message.
	if s.index != nil {
		if err := s.index.Index(msg); err != nil {
			s.log.Warn("Failed to index message", "message_id", msg.ID, "err", err)
		}
	}

	payload, err := event.Encode(event.NewChatMessage(msg, cmd.Sender))
	if err != nil {
		return domain.Message{}, err
	}
	delivered, err := s.bus.Publish(ctx, domain.RoomGroupName(cmd.RoomID), "", payload)
	if err != nil {
		s.log.Warn("Broadcast failed", "room_id", cmd.RoomID, "err", err)
	}
	s.monitoring.IncrMessagesOut(uint64(delivered))
	s.monitoring.AddRecentMessage(msg.ID.String(), msg.RoomID, msg.SenderID, string(msg.Type))

	s.notifyOffline(ctx, msg, cmd.Sender, recipients)

	return msg, nil
}

// notifyOffline persists a notification for every recipient without an
// active session. The durable presence record is the authority here, not
// the local session counter: a recipient attached to another node must
// not be treated as offline. Failures are logged, never propagated: the
// message itself is already durable.
func (s *MessageService) notifyOffline(ctx context.Context, msg domain.Message, sender domain.Identity, recipients []string) {
	for _, userID := range recipients {
		record, err := s.presence.Get(userID)
		if err == nil && record.Online {
			continue
		}
		if err := s.notifications.NewMessage(ctx, userID, msg, sender); err != nil {
			s.log.Warn("Failed to notify offline recipient", "user_id", userID, "err", err)
		}
	}
}

// UpdateStatus records a recipient's delivery acknowledgement. The state
// machine only moves forward (sent < delivered < read); a stale ack is
// accepted and ignored. On an actual transition the sender is informed
// on their private notify group.
func (s *MessageService) UpdateStatus(ctx context.Context, messageID uuid.UUID, userID string, state domain.DeliveryState) error {
	if !state.Valid() {
		return fmt.Errorf("%w: unknown delivery state %q", errors.ErrInvalidContent, state)
	}

	msg, err := s.messages.Get(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		// Senders do not acknowledge their own messages.
		return errors.ErrAccessDenied
	}
	member, err := s.rooms.IsMember(msg.RoomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrAccessDenied
	}

	status, changed, err := s.statuses.Update(messageID, userID, state)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	payload, err := event.Encode(event.NewStatusUpdate(msg.SenderID, status))
	if err != nil {
		return err
	}
	if _, err := s.bus.Publish(ctx, domain.NotifyGroupName(msg.SenderID), "", payload); err != nil {
		s.log.Warn("Failed to push status update", "message_id", messageID, "err", err)
	}
	s.monitoring.IncrStatusUpdates()
	return nil
}

// Typing broadcasts a typing indicator to everyone in the room except
// its author, identified by the origin session ID.
func (s *MessageService) Typing(ctx context.Context, roomID string, user domain.Identity, originSessionID string, isTyping bool) error {
	member, err := s.rooms.IsMember(roomID, user.UserID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrAccessDenied
	}

	payload, err := event.Encode(event.NewTyping(roomID, user, isTyping))
	if err != nil {
		return err
	}
	_, err = s.bus.Publish(ctx, domain.RoomGroupName(roomID), originSessionID, payload)
	return err
}

func (s *MessageService) History(roomID string, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.History(roomID, cursor)
}

// Search resolves full-text matches back to stored messages. A hit whose
// message has been deleted since indexing is silently skipped.
func (s *MessageService) Search(ctx context.Context, roomID, query string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return nil, nil
	}
	ids, err := s.index.Search(ctx, roomID, query, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.messages.Get(id)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
