package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func Test_User_RoundTrip_Keeps_PasswordHash(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db, slog.Default())

	user := domain.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		CreatedAt:    time.Now().UTC(),
	}
	req.NoError(repository.Create(user))

	byID, err := repository.GetByID("user-1")
	req.NoError(err)
	req.Equal(user.PasswordHash, byID.PasswordHash)

	byName, err := repository.GetByUsername("alice")
	req.NoError(err)
	req.Equal("user-1", byName.ID)
	req.Equal(user.PasswordHash, byName.PasswordHash)
}

func Test_User_Username_Must_Be_Unique(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db, slog.Default())

	req.NoError(repository.Create(domain.User{ID: "user-1", Username: "alice"}))
	req.ErrorIs(repository.Create(domain.User{ID: "user-2", Username: "alice"}), errors.ErrAlreadyExists)
}

func Test_User_Unknown_Lookups(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db, slog.Default())

	_, err := repository.GetByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetByUsername("ghost")
	req.ErrorIs(err, errors.ErrNotFound)
}
