package ws

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

func newAuthTestServer(t *testing.T) (*httptest.Server, *auth.TokenVerifier) {
	t.Helper()
	log := slog.Default()

	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	tokens := auth.NewTokenVerifier([]byte("auth-test-key"), time.Hour)
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoringManager(log)
	notifications := services.NewNotificationService(log, registry, repositories.NewNotificationRepository(db, log), monitoring)
	service := services.NewAuthService(log, repositories.NewUserRepository(db, log), tokens, notifications)

	mux := http.NewServeMux()
	NewAuthHandler(log, service).Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, tokens
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, resp.Body.Close()) })
	return resp
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	req := require.New(t)
	server, tokens := newAuthTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register", registerRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ng&Secret+Pass",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	var created tokenResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	ident, err := tokens.Verify(created.Token)
	req.NoError(err)
	req.Equal("alice", ident.Username)

	resp = postJSON(t, server.URL+"/auth/login", loginRequest{Username: "alice", Password: "Str0ng&Secret+Pass"})
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = postJSON(t, server.URL+"/auth/login", loginRequest{Username: "alice", Password: "WrongPass1!x"})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_RejectsDuplicateAndWeakInput(t *testing.T) {
	req := require.New(t)
	server, _ := newAuthTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register", registerRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Str0ng&Secret+Pass",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, server.URL+"/auth/register", registerRequest{
		Username: "alice",
		Email:    "second@example.com",
		Password: "Str0ng&Secret+Pass",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, server.URL+"/auth/register", registerRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "weak",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}
