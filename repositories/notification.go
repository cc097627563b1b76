//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

type INotificationRepository interface {
	Store(n domain.Notification) error
	ListByUser(userID string, onlyUnread bool) ([]domain.Notification, error)
	MarkRead(userID string, id uuid.UUID) error
}

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

func (n NotificationRepository) Store(notification domain.Notification) error {
	raw, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return n.db.Update(func(txn *badger.Txn) error {
		return txn.Set(notificationKey(notification.UserID, notification.CreatedAt, notification.ID), raw)
	})
}

// ListByUser returns a user's notifications newest-first.
func (n NotificationRepository) ListByUser(userID string, onlyUnread bool) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := n.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%s:", prefixNotification, userID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte(nil), prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var notification domain.Notification
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &notification)
			}); err != nil {
				return err
			}
			if onlyUnread && notification.IsRead {
				continue
			}
			notifications = append(notifications, notification)
		}
		return nil
	})
	return notifications, err
}

// MarkRead flips the read flag once; marking an already-read notification
// is a no-op.
func (n NotificationRepository) MarkRead(userID string, id uuid.UUID) error {
	return n.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%s:", prefixNotification, userID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var notification domain.Notification
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &notification)
			}); err != nil {
				return err
			}
			if notification.ID != id {
				continue
			}
			if notification.IsRead {
				return nil
			}
			now := time.Now().UTC()
			notification.IsRead = true
			notification.ReadAt = &now
			raw, err := json.Marshal(notification)
			if err != nil {
				return err
			}
			return txn.Set(append([]byte(nil), item.Key()...), raw)
		}
		return errors.ErrNotFound
	})
}
