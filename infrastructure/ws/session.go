// Package ws is the WebSocket gateway: it upgrades connections, binds
// each one to a broadcast group, and pumps frames between the wire and
// the services.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
)

const (
	// Time allowed to read the next pong before the peer is considered gone.
	pongWait = 60 * time.Second

	// Ping interval, must be shorter than pongWait.
	pingPeriod = 54 * time.Second

	// Time allowed to flush a single outbound frame.
	writeWait = 10 * time.Second
)

// Session is one live WebSocket connection. It is the EventSink the bus
// delivers to: Consume enqueues onto a bounded channel and the write
// pump drains it, so a slow reader never blocks a broadcast.
type Session struct {
	id       string
	identity domain.Identity
	group    string
	conn     *websocket.Conn
	log      *slog.Logger
	send     chan []byte

	monitoring *observability.MonitoringManager
	closeOnce  sync.Once
	done       chan struct{}
	openedAt   time.Time
}

func newSession(conn *websocket.Conn, identity domain.Identity, group string, bufferSize int, log *slog.Logger, monitoring *observability.MonitoringManager) *Session {
	id := uuid.NewString()
	return &Session{
		id:         id,
		identity:   identity,
		group:      group,
		conn:       conn,
		log:        log.With("session_id", id, "user_id", identity.UserID),
		send:       make(chan []byte, bufferSize),
		monitoring: monitoring,
		done:       make(chan struct{}),
		openedAt:   time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Consume enqueues an outbound payload without blocking. When the
// buffer is full the session is terminated with a slow-consumer close
// so the backpressure never reaches the broadcaster.
func (s *Session) Consume(_ context.Context, payload []byte) error {
	select {
	case <-s.done:
		return errors.ErrSinkOverflow
	default:
	}

	select {
	case s.send <- payload:
		return nil
	default:
		s.log.Warn("Outbound buffer full, dropping session")
		s.monitoring.IncrDroppedSends()
		s.terminate(websocket.CloseTryAgainLater, "slow consumer")
		return errors.ErrSinkOverflow
	}
}

// terminate sends a close frame and unblocks both pumps. Safe to call
// from any goroutine, any number of times.
func (s *Session) terminate(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			s.log.Debug("Failed to write close frame", "err", err)
		}
		close(s.done)
	})
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.monitoring.IncrOutboundBytes(uint64(len(payload)))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug("Write failed, closing session", "err", err)
				s.terminate(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.terminate(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// readPump reads inbound frames and hands them to route until the peer
// disconnects or the session is terminated.
func (s *Session) readPump(ctx context.Context, maxFrameSize int64, route func(ctx context.Context, s *Session, frame []byte)) {
	defer s.terminate(websocket.CloseNormalClosure, "")

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Read failed", "err", err)
			}
			return
		}
		route(ctx, s, frame)
	}
}
