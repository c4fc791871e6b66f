package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-core/auth"
	"chat-core/domain/event"
	"chat-core/gateway"
	"chat-core/internal"
	"chat-core/moderation"
	"chat-core/notify"
	"chat-core/observability"
	"chat-core/repositories"
	"chat-core/runtime"
	"chat-core/runtime/workers"
	"chat-core/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the gateway and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge index...")
		_ = index.Close()
	}()

	// 3. Repositories
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository init failed: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()
	userRepository := repositories.NewUserRepository(db, index, log)
	groupRepository := repositories.NewGroupRepository(db, log)

	// 4. Moderation
	var moderator *moderation.Moderator
	if config.EnableModeration {
		wordlists, err := runtime.DefaultWordlists()
		if err != nil {
			return fmt.Errorf("loading wordlists failed: %w", err)
		}
		replacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		mod, err := moderation.NewModerator(wordlists.Words, replacement, log)
		if err != nil {
			return fmt.Errorf("moderator init failed: %w", err)
		}
		moderator = &mod
		log.Info("Moderation enabled", "languages", wordlists.Languages, "words", len(wordlists.Words))
	}

	// 5. Engine plumbing
	refresh := make(chan struct{}, 1)
	jobs := make(chan notify.Job, config.NotifyQueueSize)
	telemetryChan := make(chan event.Event, config.TelemetrySize)

	monitoring := observability.NewMonitoringManager()
	registry := runtime.NewRegistry(refresh)

	orchestrator := runtime.NewOrchestrator(
		log, registry, messageRepository, moderator,
		jobs, telemetryChan, monitoring,
	)

	// 6. Notification fan-out
	pushService := notify.NewHTTPPushService(nil, config.PushURL, log)
	dispatcher := notify.NewDispatcher(
		log, registry, userRepository, groupRepository, pushService,
		config.PushBatchSize, config.PushTimeout, config.NotifyOfflineOnly,
		monitoring,
	)

	// 7. Supervised workers
	handlers := []event.Handler{
		event.NewChannelCapacityHandler(log, config.LowCapacityThreshold),
		event.NewLatencyHandler(log, config.LatencyThreshold),
	}
	channels := []workers.NamedChannel{
		{Name: "notify_jobs", Channel: jobs},
		{Name: "telemetry", Channel: telemetryChan},
	}

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewPresenceWorker(log, registry, refresh, config.PresenceWindow, monitoring),
		workers.NewNotifierWorker(log, dispatcher, jobs),
		workers.NewTelemetryWorker(log, telemetryChan, handlers),
		workers.NewChannelCapacityWorker(log, channels, telemetryChan, config.MetricInterval),
		workers.NewHeartbeatWorker(log, config.MetricInterval, monitoring),
	)

	// 8. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 9. Services & Gateway
	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret), "chat-core", config.AuthTokenDuration)
	chatService := services.NewChatService(orchestrator)
	authService := services.NewAuthService(userRepository, tokens)
	socialService := services.NewSocialService(userRepository, groupRepository, orchestrator)

	gw := gateway.NewGateway(log, gateway.Config{
		Addr:           fmt.Sprintf("%s:%d", config.Host, config.Port),
		AllowedOrigins: strings.Split(config.AllowedOrigins, ","),
		MaxMessageSize: config.MaxMessageLength,
		SinkBuffer:     config.SinkBufferSize,
	}, chatService, authService, socialService, userRepository, registry, tokens)

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, nil, func() map[string]any {
			stats := monitoring.GetLatest()
			return map[string]any{
				"messages_routed":       stats.MessagesRouted,
				"messages_persisted":    stats.MessagesPersisted,
				"persistence_failures":  stats.PersistenceFailures,
				"notifications_sent":    stats.NotificationsSent,
				"notifications_dropped": stats.NotificationsDropped,
				"presence_broadcasts":   stats.PresenceBroadcasts,
			}
		})
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting gateway", "at", time.Now().UTC())
		if err := gw.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 11. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Warn("Gateway shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
