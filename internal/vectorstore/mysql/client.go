// Package mysql implements vectorstore.Store on top of a plain MySQL
// server (go-sql-driver/mysql), renamed and simplified from the
// teacher's OceanBase adapter. Stock MySQL has no VECTOR column type
// or cosine_distance function (those are OceanBase/HeatWave
// extensions), so embeddings are stored as JSON and similarity is
// computed in memory, the same strategy internal/vectorstore/sqlite
// uses.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

// Client is a MySQL-backed vectorstore.Store.
type Client struct {
	db             *sql.DB
	collectionName string
}

// Config configures a Client.
type Config struct {
	DSN            string
	CollectionName string
}

// NewClient opens dsn and ensures the memories table exists.
func NewClient(cfg Config) (*Client, error) {
	const op = "vectorstore.mysql.NewClient"

	db, err := sql.Open("mysql", cfg.DSN)
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
	c := &Client{db: db, collectionName: collection}
	if err := c.initTables(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initTables(ctx context.Context) error {
	const op = "vectorstore.mysql.initTables"

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			agent_id VARCHAR(255),
			content LONGTEXT NOT NULL,
			content_hash VARCHAR(32),
			embedding JSON NOT NULL,
			metadata JSON,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_owner (user_id, agent_id)
		)
	`, c.collectionName)
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	historySchema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			memory_id BIGINT NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			event VARCHAR(16) NOT NULL,
			previous_memory LONGTEXT,
			new_memory LONGTEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_memory (memory_id, user_id)
		)
	`, c.historyTable())
	if _, err := c.db.ExecContext(ctx, historySchema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) historyTable() string {
	return c.collectionName + "_history"
}

func (c *Client) AppendHistory(ctx context.Context, ev vectorstore.HistoryEvent) error {
	const op = "vectorstore.mysql.AppendHistory"
	query := fmt.Sprintf(`
		INSERT INTO %s (memory_id, user_id, event, previous_memory, new_memory, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
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
	const op = "vectorstore.mysql.GetHistory"
	query := fmt.Sprintf(`
		SELECT memory_id, user_id, event, previous_memory, new_memory, created_at
		FROM %s WHERE memory_id = ? AND user_id = ? ORDER BY created_at ASC, id ASC
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
	const op = "vectorstore.mysql.Insert"

	embeddingJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}

	hash := rec.ContentHash
	if hash == "" {
		hash = generateHash(rec.Content)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.collectionName)

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.AgentID, rec.Content, hash,
		string(embeddingJSON), string(metadataJSON), now, now,
	)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	const op = "vectorstore.mysql.Search"
	if opts == nil {
		opts = &vectorstore.SearchOptions{}
	}

	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID)
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at
		FROM %s %s ORDER BY id
	`, c.collectionName, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
		rec.Score = cosineSimilarity(embedding, rec.Embedding)
		if rec.Score >= opts.MinScore {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	return sortByScore(records, opts.Limit), nil
}

func (c *Client) Get(ctx context.Context, id int64, opts *vectorstore.GetOptions) (*vectorstore.Record, error) {
	const op = "vectorstore.mysql.Get"
	if opts == nil {
		opts = &vectorstore.GetOptions{}
	}

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at
		FROM %s %s
	`, c.collectionName, whereClause)

	row := c.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.NotFound, op, "memory %d not found", id)
	}
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	return rec, nil
}

func (c *Client) Update(ctx context.Context, id int64, content string, embedding []float64, opts *vectorstore.UpdateOptions) (*vectorstore.Record, error) {
	const op = "vectorstore.mysql.Update"
	if opts == nil {
		opts = &vectorstore.UpdateOptions{}
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	hash := generateHash(content)

	whereClause := "WHERE id = ?"
	args := []interface{}{content, string(embeddingJSON), hash, time.Now().UTC(), id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`UPDATE %s SET content = ?, embedding = ?, content_hash = ?, updated_at = ? %s`, c.collectionName, whereClause)
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
	const op = "vectorstore.mysql.Delete"
	if opts == nil {
		opts = &vectorstore.DeleteOptions{}
	}

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
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
	const op = "vectorstore.mysql.GetAll"
	if opts == nil {
		opts = &vectorstore.GetAllOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID)
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at
		FROM %s %s ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, c.collectionName, whereClause)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (c *Client) DeleteAll(ctx context.Context, opts *vectorstore.DeleteAllOptions) error {
	const op = "vectorstore.mysql.DeleteAll"
	if opts == nil {
		opts = &vectorstore.DeleteAllOptions{}
	}
	whereClause, args := buildWhereClause(opts.UserID, opts.AgentID)
	query := fmt.Sprintf("DELETE FROM %s %s", c.collectionName, whereClause)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

// CreateIndex is a no-op: stock MySQL has no native vector index, so
// similarity search always falls back to full-table cosine scoring.
func (c *Client) CreateIndex(ctx context.Context, cfg *vectorstore.IndexConfig) error {
	return nil
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

func scanRecord(s rowScanner) (*vectorstore.Record, error) {
	var rec vectorstore.Record
	var embeddingStr string
	var metadataStr sql.NullString
	var agentID, contentHash sql.NullString

	if err := s.Scan(
		&rec.ID, &rec.UserID, &agentID, &rec.Content, &contentHash,
		&embeddingStr, &metadataStr, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.AgentID = agentID.String
	rec.ContentHash = contentHash.String

	if err := json.Unmarshal([]byte(embeddingStr), &rec.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return &rec, nil
}
