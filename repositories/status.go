//go:generate go run go.uber.org/mock/mockgen -source=status.go -destination=../mocks/mock_status_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
)

const statusLockShards = 64

type IStatusRepository interface {
	Update(messageID uuid.UUID, userID string, state domain.DeliveryState) (domain.DeliveryStatus, bool, error)
	Get(messageID uuid.UUID, userID string) (domain.DeliveryStatus, bool, error)
	ListByMessage(messageID uuid.UUID) ([]domain.DeliveryStatus, error)
}

// StatusRepository owns the per-(message, recipient) delivery rows. Updates
// to the same row are serialized through a striped lock so concurrent acks
// from the same user cannot interleave the read and the write, which is
// what the monotonic invariant depends on.
type StatusRepository struct {
	db    *badger.DB
	log   *slog.Logger
	locks [statusLockShards]sync.Mutex
}

func NewStatusRepository(db *badger.DB, log *slog.Logger) *StatusRepository {
	return &StatusRepository{db: db, log: log}
}

func (s *StatusRepository) shard(key []byte) *sync.Mutex {
	h := fnv.New32a()
	h.Write(key)
	return &s.locks[h.Sum32()%statusLockShards]
}

// Update applies the sent < delivered < read state machine. A regression
// is a silent no-op, never an error: duplicate or late acks are benign.
// The row is created when absent, matching the original system's
// get-or-create behavior. The second return value reports whether the
// stored state actually advanced.
func (s *StatusRepository) Update(messageID uuid.UUID, userID string, state domain.DeliveryState) (domain.DeliveryStatus, bool, error) {
	key := statusKey(messageID, userID)
	lock := s.shard(key)
	lock.Lock()
	defer lock.Unlock()

	var result domain.DeliveryStatus
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		current := domain.DeliveryStatus{
			MessageID: messageID,
			UserID:    userID,
			State:     domain.StateSent,
		}
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &current)
			}); err != nil {
				return err
			}
			if current.State.AtLeast(state) {
				result = current
				return nil
			}
		case goerrors.Is(err, badger.ErrKeyNotFound):
			// First ack for this pair; fall through and create the row.
		default:
			return err
		}

		current.State = state
		current.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(current)
		if err != nil {
			return err
		}
		if err := txn.Set(key, raw); err != nil {
			return err
		}
		result = current
		changed = true
		return nil
	})
	if err != nil {
		return domain.DeliveryStatus{}, false, err
	}
	return result, changed, nil
}

func (s *StatusRepository) Get(messageID uuid.UUID, userID string) (domain.DeliveryStatus, bool, error) {
	var status domain.DeliveryStatus
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(statusKey(messageID, userID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &status)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.DeliveryStatus{}, false, nil
	}
	if err != nil {
		return domain.DeliveryStatus{}, false, err
	}
	return status, true, nil
}

func (s *StatusRepository) ListByMessage(messageID uuid.UUID) ([]domain.DeliveryStatus, error) {
	var statuses []domain.DeliveryStatus
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStatus + messageID.String() + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var status domain.DeliveryStatus
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &status)
			}); err != nil {
				return err
			}
			statuses = append(statuses, status)
		}
		return nil
	})
	return statuses, err
}
