//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
	"chat-relay/errors"
)

// RoomRepository is the room directory: the authoritative mapping of rooms
// to member identities and roles. The live messaging core only consults it
// (IsMember, Members); mutation belongs to the surrounding CRUD surface.
type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

func (r RoomRepository) Create(room domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.ID)); err == nil {
			return errors.ErrAlreadyExists
		}
		return txn.Set(roomKey(room.ID), raw)
	})
}

func (r RoomRepository) Get(roomID string) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &room)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrNotFound
	}
	return room, err
}

func (r RoomRepository) AddMember(roomID, userID string, role domain.Role) error {
	membership := domain.Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(membership)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrNotFound
			}
			return err
		}
		return txn.Set(memberKey(roomID, userID), raw)
	})
}

func (r RoomRepository) RemoveMember(roomID, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(memberKey(roomID, userID))
	})
}

// IsMember implements the contract.RoomDirectory access check.
func (r RoomRepository) IsMember(roomID, userID string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(roomID, userID))
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Members lists the user ids currently in the room.
func (r RoomRepository) Members(roomID string) ([]string, error) {
	var members []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%s:", prefixMember, roomID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			members = append(members, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return members, err
}
