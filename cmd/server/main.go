package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/message"
	"github.com/Tyrowin/roomchat/internal/moderation"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/internal/session"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	dotenvErr := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}
	addr, err := cfg.Addr()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(cfg.LogLevel)
	if dotenvErr != nil {
		logger.Debug("No .env file loaded", "error", dotenvErr)
	}

	filter, err := moderation.NewFilter(slices.Concat(moderation.DefaultWords, cfg.ProfanityWords))
	if err != nil {
		return exitConfig, fmt.Errorf("build profanity filter: %w", err)
	}

	registry := session.NewRegistry()
	defer registry.Close()

	formatter := message.NewFormatter(message.WithMapBaseURL(cfg.MapBaseURL))

	hub := server.NewHub(logger)
	go hub.Run()
	logger.Info("Hub started and ready to manage WebSocket connections")

	orchestrator := chat.NewOrchestrator(logger, registry, formatter, filter, hub)
	handler := server.NewHandler(logger, cfg, hub, orchestrator, registry)
	httpServer := server.CreateServer(addr, server.SetupRoutes(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting chat relay", "addr", addr, "public_dir", cfg.PublicDir, "allowed_origins", cfg.AllowedOrigins)

	serveErr := server.Run(ctx, httpServer, logger, cfg.ShutdownTimeout)
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Warn("Hub shutdown incomplete", "error", err)
	}
	if serveErr != nil {
		return exitRuntime, serveErr
	}

	logger.Info("Chat relay stopped")
	return exitOK, nil
}
