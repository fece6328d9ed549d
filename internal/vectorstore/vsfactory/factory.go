// Package vsfactory constructs a concrete vectorstore.Store from a
// FactoryConfig. It lives outside package vectorstore (which the
// backends import for the Store interface and shared types) to avoid
// an import cycle: vectorstore -> {mysql,postgres,sqlite} -> vectorstore.
package vsfactory

import (
	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore/mysql"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore/postgres"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore/sqlite"
)

// FactoryConfig carries the fields internal/config.VectorStore needs
// to construct a concrete Store, decoupled from the config package to
// avoid an import cycle.
type FactoryConfig struct {
	Provider           string
	SQLitePath         string
	PostgresDSN        string
	MySQLDSN           string
	CollectionName     string
	EmbeddingModelDims int
}

// New constructs the Store named by cfg.Provider ("sqlite", "postgres",
// or "mysql"), matching spec.md's VECTOR_STORE_PROVIDER enumeration.
func New(cfg FactoryConfig) (vectorstore.Store, error) {
	const op = "vectorstore.New"
	switch cfg.Provider {
	case "postgres":
		return postgres.NewClient(postgres.Config{
			DSN: cfg.PostgresDSN, CollectionName: cfg.CollectionName, EmbeddingModelDims: cfg.EmbeddingModelDims,
		})
	case "mysql":
		return mysql.NewClient(mysql.Config{DSN: cfg.MySQLDSN, CollectionName: cfg.CollectionName})
	case "sqlite", "":
		return sqlite.NewClient(sqlite.Config{DBPath: cfg.SQLitePath, CollectionName: cfg.CollectionName})
	default:
		return nil, apperr.Newf(apperr.BadInput, op, "unknown vector store provider %q", cfg.Provider)
	}
}
