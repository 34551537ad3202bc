package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdr_api/internal/global"
	"cdr_api/internal/logger"
	"cdr_api/internal/watch"

	"github.com/gofiber/fiber/v3"
)

// initLogger sets up logging from the environment.
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// startInbox runs the inbox watcher when enabled. Files already present are ingested first.
func startInbox(ctx context.Context) {
	cfg := global.ServerConfig
	log := logger.GetAppLogger()
	if !cfg.Inbox_Enabled {
		log.Info("Inbox watcher disabled")
		return
	}

	w := watch.New(cfg.Inbox_Dir, global.CdrService)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Inbox watcher goroutine panic")
			}
		}()
		if err := w.Backfill(ctx); err != nil {
			log.WithError(err).Error("Inbox backfill failed")
		}
		if err := w.Start(ctx); err != nil {
			log.WithError(err).Error("Inbox watcher failed to start")
		}
	}()
}

// main_thread runs the Fiber server until SIGINT/SIGTERM.
func main_thread(ctx context.Context) {
	app := InitFiberApp()
	cfg := global.ServerConfig
	address := ":" + cfg.Address
	log := logger.GetAppLogger()

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithFields(map[string]interface{}{
		"address":  address,
		"protocol": "HTTP",
		"store":    cfg.StoreDriver,
	}).Info("Starting server with HTTP")

	if err := app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}
}

func main() {
	initLogger()
	defer logger.Close()

	InitRegistry()
	InitGlobal()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startInbox(ctx)
	main_thread(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := global.CdrStore.Close(closeCtx); err != nil {
		logger.GetAppLogger().WithError(err).Error("Failed to close store")
	}
}
