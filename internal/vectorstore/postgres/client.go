// Package postgres implements vectorstore.Store on top of PostgreSQL
// with the pgvector extension, matching the teacher's DSN-and-vector-
// column approach.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

// Client is a pgvector-backed vectorstore.Store.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config configures a Client.
type Config struct {
	DSN                string
	CollectionName     string
	EmbeddingModelDims int
}

// NewClient opens dsn and ensures the pgvector extension and memories
// table exist.
func NewClient(cfg Config) (*Client, error) {
	const op = "vectorstore.postgres.NewClient"

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "memories"
	}
	c := &Client{db: db, collectionName: collection, dimensions: cfg.EmbeddingModelDims}
	if err := c.initTables(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initTables(ctx context.Context) error {
	const op = "vectorstore.postgres.initTables"

	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			agent_id VARCHAR(255),
			content TEXT NOT NULL,
			content_hash VARCHAR(64),
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName, c.dimensions)
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(user_id, agent_id)`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, index); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	historySchema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			memory_id BIGINT NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			event VARCHAR(16) NOT NULL,
			previous_memory TEXT,
			new_memory TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.historyTable())
	if _, err := c.db.ExecContext(ctx, historySchema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	historyIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_memory ON %s(memory_id, user_id)`, c.historyTable(), c.historyTable())
	if _, err := c.db.ExecContext(ctx, historyIndex); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) historyTable() string {
	return c.collectionName + "_history"
}

func (c *Client) AppendHistory(ctx context.Context, ev vectorstore.HistoryEvent) error {
	const op = "vectorstore.postgres.AppendHistory"
	query := fmt.Sprintf(`
		INSERT INTO %s (memory_id, user_id, event, previous_memory, new_memory, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.historyTable())
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := c.db.ExecContext(ctx, query, ev.MemoryID, ev.UserID, string(ev.Event), ev.PreviousMemory, ev.NewMemory, createdAt); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) GetHistory(ctx context.Context, memoryID int64, userID string) ([]vectorstore.HistoryEvent, error) {
	const op = "vectorstore.postgres.GetHistory"
	query := fmt.Sprintf(`
		SELECT memory_id, user_id, event, previous_memory, new_memory, created_at
		FROM %s WHERE memory_id = $1 AND user_id = $2 ORDER BY created_at ASC, id ASC
	`, c.historyTable())

	rows, err := c.db.QueryContext(ctx, query, memoryID, userID)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer rows.Close()

	var events []vectorstore.HistoryEvent
	for rows.Next() {
		var ev vectorstore.HistoryEvent
		var event string
		var prev, next sql.NullString
		if err := rows.Scan(&ev.MemoryID, &ev.UserID, &event, &prev, &next, &ev.CreatedAt); err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
		ev.Event = vectorstore.EventType(event)
		ev.PreviousMemory = prev.String
		ev.NewMemory = next.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (c *Client) Insert(ctx context.Context, rec *vectorstore.Record) error {
	const op = "vectorstore.postgres.Insert"

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.collectionName)

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.AgentID, rec.Content, rec.ContentHash,
		vectorToString(rec.Embedding), string(metadataJSON), now, now,
	)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	const op = "vectorstore.postgres.Search"
	if opts == nil {
		opts = &vectorstore.SearchOptions{}
	}

	whereClause, filterArgs := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, 2)
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at,
		       1 - (embedding <=> $1) AS similarity
		FROM %s %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.collectionName, whereClause, len(filterArgs)+2)

	args := append([]interface{}{vectorToString(embedding)}, filterArgs...)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows, true)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}

	filtered := records[:0]
	for _, r := range records {
		if r.Score >= opts.MinScore {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (c *Client) Get(ctx context.Context, id int64, opts *vectorstore.GetOptions) (*vectorstore.Record, error) {
	const op = "vectorstore.postgres.Get"
	if opts == nil {
		opts = &vectorstore.GetOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	idx := 2
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at
		FROM %s %s
	`, c.collectionName, whereClause)

	row := c.db.QueryRowContext(ctx, query, args...)
	rec, err := scanOne(row, false)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.NotFound, op, "memory %d not found", id)
	}
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	return rec, nil
}

func (c *Client) Update(ctx context.Context, id int64, content string, embedding []float64, opts *vectorstore.UpdateOptions) (*vectorstore.Record, error) {
	const op = "vectorstore.postgres.Update"
	if opts == nil {
		opts = &vectorstore.UpdateOptions{}
	}

	whereClause := "WHERE id = $4"
	args := []interface{}{content, vectorToString(embedding), time.Now().UTC(), id}
	idx := 5
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`UPDATE %s SET content = $1, embedding = $2, updated_at = $3 %s`, c.collectionName, whereClause)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	if affected == 0 {
		return nil, apperr.Newf(apperr.NotFound, op, "memory %d not found", id)
	}

	return c.Get(ctx, id, &vectorstore.GetOptions{UserID: opts.UserID, AgentID: opts.AgentID})
}

func (c *Client) Delete(ctx context.Context, id int64, opts *vectorstore.DeleteOptions) error {
	const op = "vectorstore.postgres.Delete"
	if opts == nil {
		opts = &vectorstore.DeleteOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	idx := 2
	if opts.UserID != "" {
		whereClause += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, opts.UserID)
		idx++
	}
	if opts.AgentID != "" {
		whereClause += fmt.Sprintf(" AND agent_id = $%d", idx)
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf("DELETE FROM %s %s", c.collectionName, whereClause)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.NotFound, op, "memory %d not found", id)
	}
	return nil
}

func (c *Client) GetAll(ctx context.Context, opts *vectorstore.GetAllOptions) ([]*vectorstore.Record, error) {
	const op = "vectorstore.postgres.GetAll"
	if opts == nil {
		opts = &vectorstore.GetAllOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	whereClause, args := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, 1)
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at
		FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d
	`, c.collectionName, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows, false)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	return records, nil
}

func (c *Client) DeleteAll(ctx context.Context, opts *vectorstore.DeleteAllOptions) error {
	const op = "vectorstore.postgres.DeleteAll"
	if opts == nil {
		opts = &vectorstore.DeleteAllOptions{}
	}
	whereClause, args := buildWhereClauseWithOffset(opts.UserID, opts.AgentID, 1)
	query := fmt.Sprintf("DELETE FROM %s %s", c.collectionName, whereClause)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

// CreateIndex builds an HNSW or IVFFlat index per spec §4.3's
// dimensionality-driven decision (see vectorstore.ChooseIndexType).
func (c *Client) CreateIndex(ctx context.Context, cfg *vectorstore.IndexConfig) error {
	const op = "vectorstore.postgres.CreateIndex"
	indexName := fmt.Sprintf("idx_%s_embedding", c.collectionName)

	switch cfg.IndexType {
	case vectorstore.IndexHNSW:
		params := cfg.HNSWParams
		if params == nil {
			params = &vectorstore.HNSWParams{M: 16, EfConstruction: 64}
		}
		query := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING hnsw (embedding vector_cosine_ops)
			WITH (m = %d, ef_construction = %d)
		`, indexName, c.collectionName, params.M, params.EfConstruction)
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return apperr.New(apperr.StoreUnavailable, op, err)
		}
		return nil
	case vectorstore.IndexIVFFlat:
		params := cfg.IVFFlatParams
		if params == nil {
			params = &vectorstore.IVFFlatParams{Lists: 100}
		}
		query := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)
		`, indexName, c.collectionName, params.Lists)
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return apperr.New(apperr.StoreUnavailable, op, err)
		}
		return nil
	default:
		return apperr.Newf(apperr.BadInput, op, "unsupported index type %q", cfg.IndexType)
	}
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(s rowScanner, hasScore bool) (*vectorstore.Record, error) {
	var rec vectorstore.Record
	var embeddingStr string
	var metadataStr []byte
	var agentID, contentHash sql.NullString

	dest := []interface{}{
		&rec.ID, &rec.UserID, &agentID, &rec.Content, &contentHash,
		&embeddingStr, &metadataStr, &rec.CreatedAt, &rec.UpdatedAt,
	}
	if hasScore {
		dest = append(dest, &rec.Score)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	rec.AgentID = agentID.String
	rec.ContentHash = contentHash.String

	embedding, err := parseVectorString(embeddingStr)
	if err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	rec.Embedding = embedding

	if len(metadataStr) > 0 {
		if err := json.Unmarshal(metadataStr, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows, hasScore bool) ([]*vectorstore.Record, error) {
	var records []*vectorstore.Record
	for rows.Next() {
		rec, err := scanOne(rows, hasScore)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
