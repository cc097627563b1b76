package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

type publishCall struct {
	group   string
	origin  string
	payload []byte
}

// fakeBus records every publish so tests can assert on groups,
// origins, and payloads without a live gateway.
type fakeBus struct {
	mu        sync.Mutex
	published []publishCall
}

func (b *fakeBus) Subscribe(string, contract.EventSink) {}
func (b *fakeBus) Unsubscribe(string, string)           {}

func (b *fakeBus) Publish(_ context.Context, group, origin string, payload []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishCall{group: group, origin: origin, payload: payload})
	return 1, nil
}

func (b *fakeBus) calls() []publishCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishCall, len(b.published))
	copy(out, b.published)
	return out
}

func (b *fakeBus) callsForGroup(group string) []publishCall {
	var out []publishCall
	for _, c := range b.calls() {
		if c.group == group {
			out = append(out, c)
		}
	}
	return out
}

func newTestNotificationService(t *testing.T, db *badger.DB, bus *fakeBus) *NotificationService {
	t.Helper()
	log := slog.Default()
	repo := repositories.NewNotificationRepository(db, log)
	return NewNotificationService(log, bus, repo, observability.NewMonitoringManager(log))
}

func seedRoom(t *testing.T, rooms repositories.RoomRepository, roomID string, memberIDs ...string) {
	t.Helper()
	require.NoError(t, rooms.Create(domain.Room{ID: roomID, Name: roomID, Type: domain.RoomGroup, CreatedBy: memberIDs[0]}))
	for _, userID := range memberIDs {
		require.NoError(t, rooms.AddMember(roomID, userID, domain.RoleMember))
	}
}
