package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

type recordingSink struct {
	id string

	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func newRecordingSink(id string) *recordingSink {
	return &recordingSink{id: id}
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Consume(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.ErrSinkOverflow
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSink) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func TestRegistry_PublishToGroup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	alice := newRecordingSink("session-alice")
	bob := newRecordingSink("session-bob")
	registry.Subscribe("room:general", alice)
	registry.Subscribe("room:general", bob)

	delivered, err := registry.Publish(context.Background(), "room:general", "", []byte(`{"type":"chat_message"}`))

	req.NoError(err)
	req.Equal(2, delivered)
	req.Equal(1, alice.received())
	req.Equal(1, bob.received())
}

func TestRegistry_PublishExcludesOrigin(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	alice := newRecordingSink("session-alice")
	bob := newRecordingSink("session-bob")
	registry.Subscribe("room:general", alice)
	registry.Subscribe("room:general", bob)

	delivered, err := registry.Publish(context.Background(), "room:general", "session-alice", []byte(`{"type":"typing"}`))

	req.NoError(err)
	req.Equal(1, delivered)
	req.Equal(0, alice.received())
	req.Equal(1, bob.received())
}

func TestRegistry_PublishUnknownGroup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	delivered, err := registry.Publish(context.Background(), "room:ghost", "", []byte("x"))

	req.NoError(err)
	req.Equal(0, delivered)
}

func TestRegistry_FailingSinkDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	saturated := newRecordingSink("session-full")
	saturated.fail = true
	healthy := newRecordingSink("session-ok")
	registry.Subscribe("room:general", saturated)
	registry.Subscribe("room:general", healthy)

	delivered, err := registry.Publish(context.Background(), "room:general", "", []byte("x"))

	req.NoError(err)
	req.Equal(1, delivered)
	req.Equal(1, healthy.received())
}

func TestRegistry_UnsubscribeRemovesEmptyGroup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	alice := newRecordingSink("session-alice")
	registry.Subscribe("room:general", alice)
	req.Equal(1, registry.GroupSize("room:general"))

	registry.Unsubscribe("room:general", "session-alice")

	req.Equal(0, registry.GroupSize("room:general"))
	groups, subscriptions := registry.Stats()
	req.Equal(0, groups)
	req.Equal(0, subscriptions)
}

func TestRegistry_UnsubscribeUnknownIsNoOp(t *testing.T) {
	registry := NewRegistry()

	// Must not panic on a group or sink that was never registered
	registry.Unsubscribe("room:ghost", "session-nobody")

	alice := newRecordingSink("session-alice")
	registry.Subscribe("room:general", alice)
	registry.Unsubscribe("room:general", "session-nobody")

	require.Equal(t, 1, registry.GroupSize("room:general"))
}

func TestRegistry_SameSinkInMultipleGroups(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	alice := newRecordingSink("session-alice")
	registry.Subscribe("room:general", alice)
	registry.Subscribe("notify:alice", alice)

	_, err := registry.Publish(context.Background(), "room:general", "", []byte("a"))
	req.NoError(err)
	_, err = registry.Publish(context.Background(), "notify:alice", "", []byte("b"))
	req.NoError(err)

	req.Equal(2, alice.received())

	// Leaving one group must not affect the other
	registry.Unsubscribe("room:general", "session-alice")
	req.Equal(1, registry.GroupSize("notify:alice"))
}

func TestRegistry_ConcurrentSubscribePublish(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			registry.Subscribe("room:busy", newRecordingSink(fmt.Sprintf("session-%d", n)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = registry.Publish(context.Background(), "room:busy", "", []byte("x"))
		}()
	}
	wg.Wait()

	req.Equal(50, registry.GroupSize("room:busy"))
}
