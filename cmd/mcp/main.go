package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/campus-notice-assistant/internal/adapters/mcp"
	"github.com/kirillkom/campus-notice-assistant/internal/bootstrap"
	"github.com/kirillkom/campus-notice-assistant/internal/config"
	"github.com/kirillkom/campus-notice-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, cfg.ServiceName+"-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := mcpadapter.New(app.ChatUC, logger).Serve(); err != nil {
		logger.Error("mcp_serve_failed", "error", err)
	}
}
