//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IMessageRepository interface {
	Store(message domain.Message, recipients []string) error
	Get(id uuid.UUID) (domain.Message, error)
	History(roomID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Store persists a message together with one delivered status row per
// recipient, all in a single transaction, so the message never exists
// without its derived delivery rows. The primary key is
// "msg:{room}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero padding keeps chronological order lexicographic,
//  2. the UUID disambiguates two messages landing on the same nanosecond.
//
// A secondary "msgid:{uuid}" entry points back at the primary key for
// lookups by message id.
func (m MessageRepository) Store(message domain.Message, recipients []string) error {
	primary := messageKey(message.RoomID, message.CreatedAt, message.ID)
	value, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, value); err != nil {
			return err
		}
		if err := txn.Set(messageIndexKey(message.ID), primary); err != nil {
			return err
		}
		for _, userID := range recipients {
			status := domain.DeliveryStatus{
				MessageID: message.ID,
				UserID:    userID,
				State:     domain.StateDelivered,
				UpdatedAt: message.CreatedAt,
			}
			raw, err := json.Marshal(status)
			if err != nil {
				return err
			}
			if err := txn.Set(statusKey(message.ID, userID), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get resolves a message by id through the secondary index.
// Returns errors.ErrNotFound when the id is unknown.
func (m MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIndexKey(id))
		if err != nil {
			return err
		}
		var primary []byte
		if err := item.Value(func(v []byte) error {
			primary = append([]byte(nil), v...)
			return nil
		}); err != nil {
			return err
		}
		item, err = txn.Get(primary)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &message)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// History retrieves a room's messages newest-first using a reverse prefix
// scan. Thanks to the padded timestamp in the key the scan is naturally
// sorted by time. The returned cursor resumes the scan on the next call.
func (m MessageRepository) History(roomID string, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("%s%s:", prefixMessage, roomID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			if err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var message domain.Message
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	if lastKey == "" {
		// Exhausted scan, no cursor to resume from.
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
