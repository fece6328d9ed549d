// Command mcp-gateway runs the MCP Gateway: the dual-transport
// (HTTP-stream and SSE) MCP server that authenticates callers, derives
// their effective project scope, and dispatches every tool call to the
// Memory Service over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/authstore/postgres"
	"github.com/snorlak1/mem0-server-mcp/internal/chunker"
	"github.com/snorlak1/mem0-server-mcp/internal/config"
	"github.com/snorlak1/mem0-server-mcp/internal/gateway"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp-gateway exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	authStore, err := postgres.NewClient(postgres.Config{DSN: cfg.AuthStoreDSN})
	if err != nil {
		return fmt.Errorf("opening auth store: %w", err)
	}
	defer authStore.Close()

	client := gateway.NewMemoryClient(cfg.MemoryServiceURL, cfg.RequestTimeout, cfg.ConnectTimeout)

	deps := gateway.Deps{
		Client:      client,
		ProjectMode: cfg.ProjectIDMode,
		ManualID:    cfg.ManualProjectID,
		GlobalID:    cfg.GlobalProjectID,
		ChunkCfg:    chunker.Config{MaxChunkSize: cfg.Chunker.MaxChunkSize, OverlapSize: cfg.Chunker.OverlapSize},
	}

	mcpServer := gateway.NewMCPServer(deps)
	handler := gateway.NewHandler(mcpServer, authStore)

	addr := fmt.Sprintf("%s:%d", cfg.MCPHost, cfg.MCPPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	log.Info("mcp-gateway starting", "addr", addr, "project_id_mode", cfg.ProjectIDMode, "memory_service_url", cfg.MemoryServiceURL)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("mcp-gateway stopped")
	return nil
}
