// Package sqlite implements vectorstore.Store on top of SQLite.
// Vectors are stored as JSON in a TEXT column and similarity search is
// computed in memory, since SQLite has no native vector type.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

// Client is a SQLite-backed vectorstore.Store.
type Client struct {
	db             *sql.DB
	collectionName string
}

// Config configures a Client.
type Config struct {
	DBPath         string
	CollectionName string
}

// NewClient opens (creating if needed) the SQLite database at
// cfg.DBPath and ensures the memories table exists.
func NewClient(cfg Config) (*Client, error) {
	const op = "vectorstore.sqlite.NewClient"

	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
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
	const op = "vectorstore.sqlite.initTables"

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT,
			content TEXT NOT NULL,
			content_hash TEXT,
			embedding TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName)
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s(user_id, agent_id)`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, index); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}

	historySchema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			memory_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			event TEXT NOT NULL,
			previous_memory TEXT,
			new_memory TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
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
	const op = "vectorstore.sqlite.AppendHistory"
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
	const op = "vectorstore.sqlite.GetHistory"
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
	const op = "vectorstore.sqlite.Insert"

	embeddingJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return apperr.New(apperr.Internal, op, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, agent_id, content, content_hash, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.collectionName)

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.AgentID, rec.Content, rec.ContentHash,
		string(embeddingJSON), string(metadataJSON), now, now,
	)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	const op = "vectorstore.sqlite.Search"
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
	const op = "vectorstore.sqlite.Get"
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
	const op = "vectorstore.sqlite.Update"
	if opts == nil {
		opts = &vectorstore.UpdateOptions{}
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}

	whereClause := "WHERE id = ?"
	args := []interface{}{content, string(embeddingJSON), time.Now().UTC(), id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		whereClause += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}

	query := fmt.Sprintf(`UPDATE %s SET content = ?, embedding = ?, updated_at = ? %s`, c.collectionName, whereClause)
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
	const op = "vectorstore.sqlite.Delete"
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
	const op = "vectorstore.sqlite.GetAll"
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
	const op = "vectorstore.sqlite.DeleteAll"
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

// CreateIndex is a no-op: SQLite has no native vector index and always
// scores by a full-table scan.
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
	var embeddingStr, metadataStr string
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
	if metadataStr != "" {
		if err := json.Unmarshal([]byte(metadataStr), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return &rec, nil
}
