//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
)

type IPresenceRepository interface {
	Set(record domain.PresenceRecord) error
	Get(userID string) (domain.PresenceRecord, bool, error)
}

type PresenceRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewPresenceRepository(db *badger.DB, log *slog.Logger) PresenceRepository {
	return PresenceRepository{db: db, log: log}
}

func (p PresenceRepository) Set(record domain.PresenceRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(record.UserID), raw)
	})
}

// Get returns the record and whether one exists. A user that never
// connected has no record, which readers treat as offline.
func (p PresenceRepository) Get(userID string) (domain.PresenceRecord, bool, error) {
	var record domain.PresenceRecord
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(presenceKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &record)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.PresenceRecord{}, false, nil
	}
	if err != nil {
		return domain.PresenceRecord{}, false, err
	}
	return record, true, nil
}
