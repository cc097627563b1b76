package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/services"
)

// Application close codes, in the 4000 range reserved for private use.
// They are sent after the upgrade so browser clients can read them.
const (
	CloseMissingTarget   = 4000
	CloseUnauthenticated = 4001
	CloseForbidden       = 4003
)

// inboundFrame is the tagged union read from clients. Only the fields
// matching the Type are meaningful; everything else stays zero.
type inboundFrame struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	ReplyTo   *string `json:"reply_to"`
	MessageID string  `json:"message_id"`
	Status    string  `json:"status"`
	IsTyping  bool    `json:"is_typing"`
}

type Gateway struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	verifier   contract.CredentialVerifier
	bus        contract.Bus
	rooms      contract.RoomDirectory
	messages   services.IMessageService
	presence   services.IPresenceService
	monitoring *observability.MonitoringManager

	bufferSize   int
	maxFrameSize int64
}

func NewGateway(
	log *slog.Logger,
	verifier contract.CredentialVerifier,
	bus contract.Bus,
	rooms contract.RoomDirectory,
	messages services.IMessageService,
	presence services.IPresenceService,
	monitoring *observability.MonitoringManager,
	bufferSize int,
	maxFrameSize int64,
) *Gateway {
	return &Gateway{
		log:      log,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		bus:          bus,
		rooms:        rooms,
		messages:     messages,
		presence:     presence,
		monitoring:   monitoring,
		bufferSize:   bufferSize,
		maxFrameSize: maxFrameSize,
	}
}

func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/chat/{room_id}", g.handleChat)
	mux.HandleFunc("GET /ws/notifications/{user_id}", g.handleNotifications)
	mux.HandleFunc("GET /ws/echo", g.handleEcho)

	// A bare path still upgrades, then closes with a missing-target code,
	// so browser clients see 4000 instead of an opaque 404.
	mux.HandleFunc("GET /ws/chat/", g.handleChat)
	mux.HandleFunc("GET /ws/notifications/", g.handleNotifications)
}

// bearerToken pulls the credential from the token query parameter or the
// Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// rejectAfterUpgrade accepts the handshake, then immediately closes with
// an application code. Rejecting before the upgrade would surface as an
// opaque HTTP error in browsers instead of a readable close code.
func (g *Gateway) rejectAfterUpgrade(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(writeWait)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		g.log.Debug("Failed to write rejection close frame", "err", err)
	}
	_ = conn.Close()
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	token := bearerToken(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("Upgrade failed", "err", err)
		return
	}

	if roomID == "" {
		g.rejectAfterUpgrade(conn, CloseMissingTarget, "missing room id")
		return
	}
	identity, err := g.verifier.Verify(token)
	if err != nil {
		g.rejectAfterUpgrade(conn, CloseUnauthenticated, "invalid credentials")
		return
	}
	member, err := g.rooms.IsMember(roomID, identity.UserID)
	if err != nil {
		g.log.Error("Membership lookup failed", "room_id", roomID, "err", err)
		g.rejectAfterUpgrade(conn, websocket.CloseInternalServerErr, "")
		return
	}
	if !member {
		g.rejectAfterUpgrade(conn, CloseForbidden, "not a room member")
		return
	}

	g.serve(r.Context(), conn, identity, domain.RoomGroupName(roomID), func(ctx context.Context, s *Session, frame []byte) {
		g.routeChatFrame(ctx, s, roomID, frame)
	})
}

func (g *Gateway) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	token := bearerToken(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("Upgrade failed", "err", err)
		return
	}

	if userID == "" {
		g.rejectAfterUpgrade(conn, CloseMissingTarget, "missing user id")
		return
	}
	identity, err := g.verifier.Verify(token)
	if err != nil {
		g.rejectAfterUpgrade(conn, CloseUnauthenticated, "invalid credentials")
		return
	}
	// A user may only listen to their own notification stream.
	if identity.UserID != userID {
		g.rejectAfterUpgrade(conn, CloseForbidden, "not your notification channel")
		return
	}

	// The notification stream is outbound only; inbound frames are dropped.
	g.serve(r.Context(), conn, identity, domain.NotifyGroupName(userID), func(context.Context, *Session, []byte) {})
}

// handleEcho mirrors frames back to the peer. Kept for connectivity
// checks: no auth, no groups, no persistence.
func (g *Gateway) handleEcho(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(g.maxFrameSize)
	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, frame); err != nil {
			return
		}
	}
}

// serve runs a session to completion: subscribe, mark presence, pump,
// then tear everything down exactly once.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn, identity domain.Identity, group string, route func(context.Context, *Session, []byte)) {
	session := newSession(conn, identity, group, g.bufferSize, g.log, g.monitoring)

	g.bus.Subscribe(group, session)
	if err := g.presence.SessionOpened(identity.UserID); err != nil {
		g.log.Warn("Failed to mark presence online", "user_id", identity.UserID, "err", err)
	}
	g.log.Info("Session opened", "session_id", session.id, "user_id", identity.UserID, "group", group)

	go session.writePump()
	session.readPump(ctx, g.maxFrameSize, route)

	g.bus.Unsubscribe(group, session.id)
	if err := g.presence.SessionClosed(identity.UserID); err != nil {
		g.log.Warn("Failed to mark presence offline", "user_id", identity.UserID, "err", err)
	}
	g.log.Info("Session closed", "session_id", session.id, "user_id", identity.UserID, "duration", time.Since(session.openedAt))
}

// routeChatFrame dispatches one inbound frame. Malformed or unknown
// frames are dropped and the connection stays open.
func (g *Gateway) routeChatFrame(ctx context.Context, s *Session, roomID string, frame []byte) {
	g.monitoring.IncrInboundBytes(uint64(len(frame)))

	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		g.log.Debug("Dropping malformed frame", "session_id", s.id, "err", err)
		return
	}

	switch in.Type {
	case "chat_message":
		g.monitoring.IncrMessagesIn()
		var replyTo *uuid.UUID
		if in.ReplyTo != nil {
			if id, err := uuid.Parse(*in.ReplyTo); err == nil {
				replyTo = &id
			}
		}
		_, err := g.messages.Send(ctx, services.SendMessageCommand{
			RoomID:  roomID,
			Sender:  s.identity,
			Content: in.Message,
			ReplyTo: replyTo,
		})
		if err != nil {
			g.log.Warn("Rejected message", "session_id", s.id, "err", err)
		}

	case "message_status":
		messageID, err := uuid.Parse(in.MessageID)
		if err != nil {
			g.log.Debug("Dropping status with bad message id", "session_id", s.id)
			return
		}
		if err := g.messages.UpdateStatus(ctx, messageID, s.identity.UserID, domain.DeliveryState(in.Status)); err != nil {
			g.log.Debug("Dropped status update", "session_id", s.id, "err", err)
		}

	case "typing":
		if err := g.messages.Typing(ctx, roomID, s.identity, s.id, in.IsTyping); err != nil {
			g.log.Debug("Dropped typing indicator", "session_id", s.id, "err", err)
		}

	default:
		g.log.Debug("Dropping unknown frame type", "session_id", s.id, "type", in.Type)
	}
}
