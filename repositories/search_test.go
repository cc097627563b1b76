package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func Test_Search_Scoped_To_Room(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	hit := domain.Message{ID: uuid.New(), RoomID: "room-1", SenderID: "alice", Content: "deployment schedule for tuesday", CreatedAt: time.Now().UTC()}
	otherRoom := domain.Message{ID: uuid.New(), RoomID: "room-2", SenderID: "bob", Content: "deployment is broken again", CreatedAt: time.Now().UTC()}
	noMatch := domain.Message{ID: uuid.New(), RoomID: "room-1", SenderID: "bob", Content: "lunch anyone", CreatedAt: time.Now().UTC()}

	for _, msg := range []domain.Message{hit, otherRoom, noMatch} {
		req.NoError(index.Index(msg))
	}

	ids, err := index.Search(context.Background(), "room-1", "deployment", 10)
	req.NoError(err)
	req.Equal([]uuid.UUID{hit.ID}, ids)
}

func Test_Search_No_Results(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.Index(domain.Message{ID: uuid.New(), RoomID: "room-1", SenderID: "alice", Content: "hello world", CreatedAt: time.Now().UTC()}))

	ids, err := index.Search(context.Background(), "room-1", "nonexistent", 10)
	req.NoError(err)
	req.Empty(ids)
}
