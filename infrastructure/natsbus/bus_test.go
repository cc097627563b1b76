package natsbus

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/runtime"
)

type captureSink struct {
	id string

	mu       sync.Mutex
	payloads [][]byte
}

func (s *captureSink) ID() string { return s.id }

func (s *captureSink) Consume(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *captureSink) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

// Requires a running broker, e.g. docker run -p 4222:4222 nats.
func TestBus_CrossNodeDelivery(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	req := require.New(t)
	log := slog.Default()

	connA, err := Connect(url)
	req.NoError(err)
	defer connA.Close()
	connB, err := Connect(url)
	req.NoError(err)
	defer connB.Close()

	nodeA := NewBus(log, connA, runtime.NewRegistry())
	nodeB := NewBus(log, connB, runtime.NewRegistry())

	alice := &captureSink{id: "session-alice"}
	bob := &captureSink{id: "session-bob"}
	nodeA.Subscribe("room:general", alice)
	nodeB.Subscribe("room:general", bob)

	_, err = nodeA.Publish(context.Background(), "room:general", "", []byte(`{"type":"chat_message"}`))
	req.NoError(err)

	req.Eventually(func() bool {
		return alice.last() != nil && bob.last() != nil
	}, 2*time.Second, 20*time.Millisecond)

	// The publisher's own node receives through the broker echo, once.
	req.JSONEq(`{"type":"chat_message"}`, string(alice.last()))
	req.JSONEq(`{"type":"chat_message"}`, string(bob.last()))
}

func TestBus_OriginExcludedAcrossNodes(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	req := require.New(t)
	log := slog.Default()

	conn, err := Connect(url)
	req.NoError(err)
	defer conn.Close()

	node := NewBus(log, conn, runtime.NewRegistry())

	alice := &captureSink{id: "session-alice"}
	bob := &captureSink{id: "session-bob"}
	node.Subscribe("room:general", alice)
	node.Subscribe("room:general", bob)

	_, err = node.Publish(context.Background(), "room:general", "session-alice", []byte(`{"type":"typing"}`))
	req.NoError(err)

	req.Eventually(func() bool { return bob.last() != nil }, 2*time.Second, 20*time.Millisecond)
	req.Nil(alice.last())
}

func TestSubjectFor(t *testing.T) {
	require.Equal(t, "chat.room.general", subjectFor("room:general"))
	require.Equal(t, "chat.notify.42", subjectFor("notify:42"))
}
