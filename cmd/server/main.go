package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chatsapp/internal"
	"chatsapp/moderation"
	"chatsapp/observability"
	"chatsapp/repositories"
	"chatsapp/runtime"
	"chatsapp/runtime/workers"
	"chatsapp/search"
	"chatsapp/server"
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

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting. All defers (database close, index close) execute before the
// process exits, which os.Exit in main would skip.
func run() (int, error) {
	// 1. Configuration & logger
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

	// 2. Durable store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Release the lock and flush buffers before the process returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Full-text index (Bluge)
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("index opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()
	index := search.NewIndex(blugeWriter, logger)

	// 4. Moderation
	words, err := moderation.DefaultWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words, charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator failed: %w", err)
	}

	// 5. Runtime: supervisor, registry with one broker per room
	monitor := observability.NewMonitor()
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	roomRepository := repositories.NewRoomRepository(db)

	supervisor := workers.NewSupervisor(logger)
	newBroker := func(room string) *workers.Broker {
		return workers.NewBroker(room, config.EventBufferSize, config.DeliveryBufferSize,
			&moderator, messageRepository, index, monitor, logger)
	}
	registry := runtime.NewRegistry(roomRepository, supervisor, newBroker, monitor, logger)

	// Rehydrate-then-serve: persisted rooms must exist before the first accept.
	if err := registry.Rehydrate(ctx); err != nil {
		return exitRuntime, err
	}

	// 6. TCP front: one handler goroutine per connection
	handler := server.NewHandler(registry, messageRepository, index, monitor, logger)
	srv := server.NewServer(config.Addr(), handler, logger)
	reporter := workers.NewReporter(monitor, config.MetricInterval, logger)

	supervisor.Add(srv, reporter)
	supervisor.Run(ctx)

	logger.Info("Shutdown complete", "uptime", monitor.Uptime().String())
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Debug(fmt.Sprintf("Final stats: %+v", monitor.Snapshot()))
	}
	return exitOK, nil
}
