package projection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func frame(id, sender, content, at string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"chat_message","message":{"id":%q,"content":%q,"sender":{"id":%q,"username":%q},"created_at":%q}}`,
		id, content, sender, sender, at,
	))
}

func TestTimeline_OrdersByCreationTime(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	// Frames arrive out of order
	req.NoError(timeline.Consume(frame("m2", "bob", "second", "2026-09-01T10:00:02Z")))
	req.NoError(timeline.Consume(frame("m1", "alice", "first", "2026-09-01T10:00:01Z")))
	req.NoError(timeline.Consume(frame("m3", "alice", "third", "2026-09-01T10:00:03Z")))

	entries := timeline.Entries()
	req.Len(entries, 3)
	req.Equal("first", entries[0].Content)
	req.Equal("second", entries[1].Content)
	req.Equal("third", entries[2].Content)
}

func TestTimeline_DeduplicatesRedeliveries(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	req.NoError(timeline.Consume(frame("m1", "alice", "once", "2026-09-01T10:00:01Z")))
	req.NoError(timeline.Consume(frame("m1", "alice", "once", "2026-09-01T10:00:01Z")))

	req.Equal(1, timeline.Len())
}

func TestTimeline_IgnoresOtherFrameTypes(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline()

	req.NoError(timeline.Consume([]byte(`{"type":"typing","user_id":"alice","is_typing":true}`)))
	req.NoError(timeline.Consume([]byte(`{"type":"status_update","message_id":"m1","status":"read"}`)))
	req.Error(timeline.Consume([]byte("not json")))

	req.Equal(0, timeline.Len())
}
