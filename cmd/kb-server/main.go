// Package main provides the MCP server entry point for the CT room knowledge base.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radpushman/ct-knowledge/internal/app"
	"github.com/radpushman/ct-knowledge/internal/config"
	mcpserver "github.com/radpushman/ct-knowledge/internal/mcp"
)

func main() {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Stdout carries the MCP stream in stdio mode, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	kb, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open knowledge base: %v", err)
	}
	defer kb.Close()

	if cfg.SecurityCode == "" {
		logger.Warn("KB_SECURITY_CODE is not set; write tools are disabled")
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Store:        kb.Store,
		Searcher:     kb.Searcher,
		Answers:      kb.Answers,
		Syncer:       kb.Syncer,
		Indexer:      kb.Pipeline,
		SecurityCode: cfg.SecurityCode,
		Logger:       logger,
	})

	opts := &mcpserver.HTTPOptions{}
	if kb.Index != nil {
		opts.Index = kb.Index
	}
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mcpserver.NewMux(server, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.HTTP {
		// HTTP mode: serve MCP over HTTP for remote clients
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown failed", "error", err)
			}
		}()

		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients
	// Also start HTTP health endpoint in background for local testing
	go func() {
		log.Printf("Starting health server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting CT knowledge MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}
