package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"chat-relay/contract"
	"chat-relay/runtime"
)

const subjectPrefix = "chat"

// envelope is the wire format exchanged between nodes. Origin carries
// the session ID to exclude from delivery so typing indicators are not
// echoed back to their author on any node.
type envelope struct {
	Group   string          `json:"group"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Bus extends the in-process registry across nodes through a NATS
// broker. Publishes go to the broker only; local delivery happens when
// the broker echoes the message back to our own subscription, so every
// node (including the publisher) fans out exactly once.
type Bus struct {
	log   *slog.Logger
	conn  *nats.Conn
	local *runtime.Registry

	mu   sync.Mutex
	subs map[string]*nats.Subscription
	refs map[string]int
}

// Connect dials the broker with endless reconnection, the way a chat
// backend should survive a broker restart.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("chat-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

func NewBus(log *slog.Logger, conn *nats.Conn, local *runtime.Registry) *Bus {
	return &Bus{
		log:   log,
		conn:  conn,
		local: local,
		subs:  make(map[string]*nats.Subscription),
		refs:  make(map[string]int),
	}
}

// subjectFor maps a group name to a NATS subject, e.g.
// "room:general" becomes "chat.room.general".
func subjectFor(group string) string {
	return subjectPrefix + "." + strings.ReplaceAll(group, ":", ".")
}

// Subscribe attaches the sink locally and opens the broker subscription
// for the group if this node does not listen to it yet.
func (b *Bus) Subscribe(group string, sink contract.EventSink) {
	b.local.Subscribe(group, sink)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refs[group]++
	if _, ok := b.subs[group]; ok {
		return
	}

	sub, err := b.conn.Subscribe(subjectFor(group), b.handleMessage)
	if err != nil {
		b.log.Error("Failed to subscribe on broker", "group", group, "err", err)
		return
	}
	b.subs[group] = sub
}

// Unsubscribe detaches the sink locally and drops the broker
// subscription once the last local sink for the group is gone.
func (b *Bus) Unsubscribe(group, sinkID string) {
	b.local.Unsubscribe(group, sinkID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refs[group] == 0 {
		return
	}
	b.refs[group]--
	if b.refs[group] > 0 {
		return
	}
	delete(b.refs, group)

	if sub, ok := b.subs[group]; ok {
		if err := sub.Unsubscribe(); err != nil {
			b.log.Warn("Failed to unsubscribe on broker", "group", group, "err", err)
		}
		delete(b.subs, group)
	}
}

// Publish sends the payload to the broker. The returned count is the
// number of local sinks currently subscribed to the group, which the
// broker echo will reach shortly; remote recipients are not counted.
func (b *Bus) Publish(_ context.Context, group, origin string, payload []byte) (int, error) {
	data, err := json.Marshal(envelope{Group: group, Origin: origin, Payload: payload})
	if err != nil {
		return 0, fmt.Errorf("encoding bus envelope: %w", err)
	}
	if err := b.conn.Publish(subjectFor(group), data); err != nil {
		return 0, fmt.Errorf("publishing to broker: %w", err)
	}
	return b.local.GroupSize(group), nil
}

func (b *Bus) handleMessage(m *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(m.Data, &env); err != nil {
		b.log.Warn("Dropping malformed bus envelope", "subject", m.Subject, "err", err)
		return
	}
	if _, err := b.local.Publish(context.Background(), env.Group, env.Origin, env.Payload); err != nil {
		b.log.Warn("Local fan-out failed", "group", env.Group, "err", err)
	}
}

// Close drains the connection so in-flight messages are delivered
// before shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	for group, sub := range b.subs {
		_ = sub.Unsubscribe()
		delete(b.subs, group)
		delete(b.refs, group)
	}
	b.mu.Unlock()

	if err := b.conn.Drain(); err != nil {
		b.log.Warn("Failed to drain broker connection", "err", err)
	}
}
