//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IUserRepository interface {
	Create(user domain.User) error
	GetByID(id string) (domain.User, error)
	GetByUsername(username string) (domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

// storedUser is the persistence shape of a user row. domain.User hides
// the password hash from outbound JSON, so the row keeps its own field.
type storedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"password_hash"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toStoredUser(user domain.User) storedUser {
	return storedUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
	}
}

func (s storedUser) toDomain() domain.User {
	return domain.User{
		ID:           s.ID,
		Username:     s.Username,
		Email:        s.Email,
		FullName:     s.FullName,
		PasswordHash: s.PasswordHash,
		ProfileImage: s.ProfileImage,
		CreatedAt:    s.CreatedAt,
	}
}

// Create persists a user and a username uniqueness marker in one
// transaction. A taken username fails with ErrAlreadyExists.
func (u UserRepository) Create(user domain.User) error {
	raw, err := json.Marshal(toStoredUser(user))
	if err != nil {
		return err
	}
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return errors.ErrAlreadyExists
		}
		if err := txn.Set(userKey(user.ID), raw); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.Username), []byte(user.ID))
	})
}

func (u UserRepository) GetByID(id string) (domain.User, error) {
	var row storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &row)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	return row.toDomain(), err
}

func (u UserRepository) GetByUsername(username string) (domain.User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = string(v)
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u.GetByID(id)
}
