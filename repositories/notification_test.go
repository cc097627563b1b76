package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func newNotification(userID, title string, at time.Time) domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Body:      "body",
		Type:      domain.NotifMessage,
		CreatedAt: at,
	}
}

func Test_Notification_List_Newest_First(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewNotificationRepository(db, slog.Default())

	at := time.Now().UTC()
	req.NoError(repository.Store(newNotification("bob", "older", at)))
	req.NoError(repository.Store(newNotification("bob", "newer", at.Add(time.Minute))))
	req.NoError(repository.Store(newNotification("clara", "other user", at)))

	notifications, err := repository.ListByUser("bob", false)
	req.NoError(err)
	req.Len(notifications, 2)
	req.Equal("newer", notifications[0].Title)
	req.Equal("older", notifications[1].Title)
}

func Test_Notification_MarkRead(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewNotificationRepository(db, slog.Default())

	notification := newNotification("bob", "unread", time.Now().UTC())
	req.NoError(repository.Store(notification))

	req.NoError(repository.MarkRead("bob", notification.ID))

	unread, err := repository.ListByUser("bob", true)
	req.NoError(err)
	req.Empty(unread)

	all, err := repository.ListByUser("bob", false)
	req.NoError(err)
	req.Len(all, 1)
	req.True(all[0].IsRead)
	req.NotNil(all[0].ReadAt)

	// Second read is a no-op, the first read timestamp survives.
	firstRead := *all[0].ReadAt
	req.NoError(repository.MarkRead("bob", notification.ID))
	all, err = repository.ListByUser("bob", false)
	req.NoError(err)
	req.Equal(firstRead, *all[0].ReadAt)
}

func Test_Notification_MarkRead_Unknown(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewNotificationRepository(db, slog.Default())

	req.ErrorIs(repository.MarkRead("bob", uuid.New()), errors.ErrNotFound)
}
