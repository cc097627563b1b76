package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chat-relay/projection"
)

// ChatScenarioSuite drives a running chat-relay instance from the
// outside: real HTTP, real WebSockets. Point SERVER_ADDR at an instance
// started with DEFAULT_ROOM=lobby to run the conversation scenario.
type ChatScenarioSuite struct {
	suite.Suite
	cfg     Config
	baseURL string
	wsURL   string
}

func TestChatScenario(t *testing.T) {
	suite.Run(t, new(ChatScenarioSuite))
}

func (s *ChatScenarioSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	if cfg.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping e2e scenario")
	}
	color.Enable = cfg.Colours
	s.cfg = cfg
	s.baseURL = "http://" + cfg.ServerAddr
	s.wsURL = "ws://" + cfg.ServerAddr
}

func (s *ChatScenarioSuite) banner(text string) {
	color.Bold.Println("\n=== " + text + " ===")
}

type account struct {
	username string
	token    string
}

// register creates a throwaway account; usernames are suffixed so the
// suite can run repeatedly against the same instance.
func (s *ChatScenarioSuite) register(prefix string) account {
	username := fmt.Sprintf("%s%s", prefix, uuid.NewString()[:8])
	body, err := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Str0ng&Secret+Pass",
	})
	s.Require().NoError(err)

	resp, err := http.Post(s.baseURL+"/auth/register", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer func() { s.Require().NoError(resp.Body.Close()) }()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return account{username: username, token: out.Token}
}

func (s *ChatScenarioSuite) dial(path, token string) *websocket.Conn {
	url := s.wsURL + path
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *ChatScenarioSuite) readFrame(conn *websocket.Conn) []byte {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, frame, err := conn.ReadMessage()
	s.Require().NoError(err)
	return frame
}

func (s *ChatScenarioSuite) Test_01_HealthCheck() {
	s.banner("Health check")
	resp, err := http.Get(s.baseURL + "/healthz")
	s.Require().NoError(err)
	defer func() { s.Require().NoError(resp.Body.Close()) }()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *ChatScenarioSuite) Test_02_EchoRoundTrip() {
	s.banner("Echo round trip")
	conn := s.dial("/ws/echo", "")
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("connectivity probe")))
	s.Require().Equal("connectivity probe", string(s.readFrame(conn)))
}

func (s *ChatScenarioSuite) Test_03_AuthRejections() {
	s.banner("Gateway auth rejections")

	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL+"/ws/chat/lobby?token=garbage", nil)
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	defer func() { _ = conn.Close() }()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	s.Require().True(ok, "expected close error, got %v", err)
	s.Require().Equal(4001, closeErr.Code)
}

func (s *ChatScenarioSuite) Test_04_LobbyConversation() {
	s.banner("Lobby conversation")

	alice := s.register("alice")
	bob := s.register("bob")

	aliceConn, resp, err := websocket.DefaultDialer.Dial(s.wsURL+"/ws/chat/lobby?token="+alice.token, nil)
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.T().Cleanup(func() { _ = aliceConn.Close() })

	// An instance without DEFAULT_ROOM=lobby rejects the membership check.
	s.Require().NoError(aliceConn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	s.Require().NoError(aliceConn.WriteJSON(map[string]any{"type": "typing", "is_typing": false}))
	bobConn := s.dial("/ws/chat/lobby", bob.token)
	aliceNotify := s.dial("/ws/notifications/"+s.identityOf(alice), alice.token)

	// Alice talks, both ends build the same timeline
	s.Require().NoError(aliceConn.WriteJSON(map[string]any{"type": "chat_message", "message": "first from alice"}))
	s.Require().NoError(aliceConn.WriteJSON(map[string]any{"type": "chat_message", "message": "second from alice"}))

	aliceTimeline := projection.NewTimeline()
	bobTimeline := projection.NewTimeline()
	for aliceTimeline.Len() < 2 {
		s.Require().NoError(aliceTimeline.Consume(s.readFrame(aliceConn)))
	}
	for bobTimeline.Len() < 2 {
		s.Require().NoError(bobTimeline.Consume(s.readFrame(bobConn)))
	}

	entries := bobTimeline.Entries()
	s.Require().Equal("first from alice", entries[0].Content)
	s.Require().Equal("second from alice", entries[1].Content)
	s.Require().Equal(aliceTimeline.Entries(), entries)

	// Bob reads the last message; alice gets the receipt on her notify channel
	s.Require().NoError(bobConn.WriteJSON(map[string]any{
		"type":       "message_status",
		"message_id": entries[1].ID,
		"status":     "read",
	}))

	var receipt struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(s.readFrame(aliceNotify), &receipt))
	s.Require().Equal("status_update", receipt.Type)
	s.Require().Equal(entries[1].ID, receipt.MessageID)
	s.Require().Equal("read", receipt.Status)

	color.Green.Println("conversation scenario passed")
}

// identityOf reads the user id out of the unverified JWT payload. The
// signature does not matter here: the server is the one verifying it.
func (s *ChatScenarioSuite) identityOf(acc account) string {
	parts := strings.Split(acc.token, ".")
	s.Require().Len(parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	s.Require().NoError(err)

	var claims struct {
		UserID string `json:"user_id"`
	}
	s.Require().NoError(json.Unmarshal(payload, &claims))
	s.Require().NotEmpty(claims.UserID)
	return claims.UserID
}
