package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/learnlens/internal/config"
	"github.com/felixgeelhaar/learnlens/internal/daemon"
	mcpserver "github.com/felixgeelhaar/learnlens/internal/mcp"
)

// cmdMCP serves the analytics tools over stdio, opening the configured
// storage in-process
func cmdMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := config.EnsureLearnlensDir()
	if err != nil {
		return err
	}

	// stdout carries the protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := daemon.NewRuntime(ctx, cfg, dir, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer rt.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Service:     rt.Service,
		DefaultUser: cfg.Analytics.DefaultUser,
		Version:     Version,
	})
	return srv.ServeStdio(ctx)
}
