// Command memoryd runs the Memory Service HTTP API: the REST surface
// the MCP Gateway dispatches every tool call to, backed by the
// configured vector store, graph store, embedder, LLM extractor and
// background projection pool.
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

	"github.com/snorlak1/mem0-server-mcp/internal/config"
	"github.com/snorlak1/mem0-server-mcp/internal/embedder"
	"github.com/snorlak1/mem0-server-mcp/internal/extractor"
	"github.com/snorlak1/mem0-server-mcp/internal/graph/sqlite"
	"github.com/snorlak1/mem0-server-mcp/internal/llm/llmfactory"
	"github.com/snorlak1/mem0-server-mcp/internal/memoryservice"
	"github.com/snorlak1/mem0-server-mcp/internal/projection"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore/vsfactory"
)

func main() {
	if err := run(); err != nil {
		slog.Error("memoryd exited", "error", err)
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

	store, err := vsfactory.New(vsfactory.FactoryConfig{
		Provider:           cfg.VectorStore.Provider,
		SQLitePath:         cfg.VectorStore.SQLitePath,
		PostgresDSN:        cfg.VectorStore.PostgresDSN,
		MySQLDSN:           cfg.VectorStore.MySQLDSN,
		CollectionName:     cfg.VectorStore.CollectionName,
		EmbeddingModelDims: cfg.Embedder.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer store.Close()

	graphStore, err := sqlite.NewClient(sqlite.Config{DBPath: cfg.GraphStorePath})
	if err != nil {
		return fmt.Errorf("opening graph store: %w", err)
	}
	defer graphStore.Close()

	emb, err := embedder.New(embedder.FactoryConfig{
		Provider:     cfg.Embedder.Provider,
		APIKey:       cfg.Embedder.APIKey,
		Model:        cfg.Embedder.Model,
		BaseURL:      cfg.Embedder.BaseURL,
		Dimensions:   cfg.Embedder.Dimensions,
		TruncateFrom: cfg.Embedder.TruncateFrom,
	})
	if err != nil {
		return fmt.Errorf("constructing embedder: %w", err)
	}

	llmProvider, err := llmfactory.New(llmfactory.FactoryConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("constructing LLM provider: %w", err)
	}
	ext := extractor.New(llmProvider)

	retryPolicy := projection.RetryPolicy{MaxAttempts: cfg.Projection.MaxRetries, BaseDelay: time.Second}
	projector := projection.NewPool(graphStore, cfg.Projection.WorkerCount, retryPolicy, log)
	defer projector.Close()

	svc, err := memoryservice.New(store, graphStore, emb, ext, projector, log)
	if err != nil {
		return fmt.Errorf("constructing memory service: %w", err)
	}

	isAdmin := func(r *http.Request) bool {
		if cfg.AdminAPIKey == "" {
			return false
		}
		return r.Header.Get("X-Admin-Key") == cfg.AdminAPIKey
	}
	handler := memoryservice.NewHandler(svc, graphStore, isAdmin, log)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("memoryd starting", "addr", addr, "vector_store", cfg.VectorStore.Provider, "embedder", cfg.Embedder.Provider, "llm", cfg.LLM.Provider)

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
	log.Info("memoryd stopped")
	return nil
}
