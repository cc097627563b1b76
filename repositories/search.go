package repositories

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"chat-relay/domain"
)

// MessageIndex is the full-text index over persisted messages. Indexing is
// best-effort from the pipeline's point of view: a message that fails to
// index is still delivered and persisted.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (m *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content)).
		AddField(bluge.NewKeywordField("room", message.RoomID)).
		AddField(bluge.NewKeywordField("sender", message.SenderID)).
		AddField(bluge.NewDateTimeField("created_at", message.CreatedAt))
	return m.writer.Update(doc.ID(), doc)
}

// Search returns the ids of the room's messages matching the query text,
// best match first.
func (m *MessageIndex) Search(ctx context.Context, roomID, query string, limit int) ([]uuid.UUID, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(bluge.NewTermQuery(roomID).SetField("room"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		if err := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, err := uuid.Parse(string(value)); err == nil {
					ids = append(ids, id)
				}
			}
			return true
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
