package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	chaterrors "chat-relay/errors"
	"chat-relay/infrastructure/natsbus"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the gateway and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Broadcast bus: in-process registry, extended over NATS when configured
	registry := runtime.NewRegistry()
	var bus contract.Bus = registry
	if config.NatsURL != nil {
		conn, err := natsbus.Connect(*config.NatsURL)
		if err != nil {
			return exitRuntime, fmt.Errorf("broker connection failed: %w", err)
		}
		natsBus := natsbus.NewBus(logger, conn, registry)
		defer natsBus.Close()
		bus = natsBus
		logger.Info("Cross-process broadcast enabled", "url", *config.NatsURL)
	}

	// 4. Repositories & services
	monitoring := observability.NewMonitoringManager(logger)

	words, err := moderation.DefaultWords()
	if err != nil {
		return exitConfig, fmt.Errorf("loading moderation words: %w", err)
	}
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitConfig, fmt.Errorf("building moderator: %w", err)
	}

	rooms := repositories.NewRoomRepository(db, logger)
	index := repositories.NewMessageIndex(blugeWriter, logger)
	presence := services.NewPresenceService(logger, repositories.NewPresenceRepository(db, logger))
	notifications := services.NewNotificationService(logger, bus, repositories.NewNotificationRepository(db, logger), monitoring)
	messages := services.NewMessageService(
		logger, bus,
		repositories.NewMessageRepository(db, logger, config.LimitMessages),
		repositories.NewStatusRepository(db, logger),
		rooms, presence, notifications,
		index, moderator, monitoring, config.MaxContentLength,
	)

	tokens := auth.NewTokenVerifier([]byte(config.JwtSigningKey), config.AuthTokenDuration)
	authService := services.NewAuthService(logger, repositories.NewUserRepository(db, logger), tokens, notifications)
	if config.DefaultRoom != nil {
		if err := ensureRoom(rooms, *config.DefaultRoom); err != nil {
			return exitRuntime, fmt.Errorf("creating default room: %w", err)
		}
		authService.WithDefaultRoom(rooms, *config.DefaultRoom)
		logger.Info("New accounts join default room", "room_id", *config.DefaultRoom)
	}

	// 5. Gateway & HTTP server
	gateway := ws.NewGateway(
		logger, tokens, bus, rooms, messages, presence, monitoring,
		config.SessionBufferSize, config.MaxFrameSize,
	)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := ws.NewServer(address, gateway, ws.NewAuthHandler(logger, authService))

	if config.DebugPort > 0 {
		internal.StartDebugServer(logger, config.DebugPort, monitoring, db)
	}

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(logger)
	sup.Add(workers.NewHeartbeatWorker(logger, monitoring, registry))
	go sup.Run(ctx)
	go monitoring.Listen(ctx, config.MetricInterval)

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting gateway", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Forced shutdown", "err", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func ensureRoom(rooms repositories.RoomRepository, roomID string) error {
	err := rooms.Create(domain.Room{
		ID:        roomID,
		Name:      roomID,
		Type:      domain.RoomGroup,
		CreatedBy: "system",
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, chaterrors.ErrAlreadyExists) {
		return nil
	}
	return err
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
