// Package postgres implements authstore.Store on top of PostgreSQL,
// matching spec.md §6's auth_tokens/auth_audit schema and grounded on
// original_source/mcp-server/auth.py's TokenAuthenticator validation
// sequence (not-found, disabled, expired, user_id mismatch, success)
// and original_source/scripts/mcp-token.py's prefix-based admin
// operations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/authstore"
)

const cacheTTL = 60 * time.Second

type cachedRow struct {
	row       tokenRow
	fetchedAt time.Time
}

type tokenRow struct {
	Token       string
	UserID      string
	DisplayName sql.NullString
	Email       sql.NullString
	Enabled     bool
	ExpiresAt   sql.NullTime
	Permissions []string
}

// Client is a Postgres-backed authstore.Store. It caches token lookups
// for up to 60s (spec.md §5) but invalidates the cache entry for any
// token touched by a write, so revocations are visible immediately
// rather than waiting out the TTL.
type Client struct {
	db *sql.DB

	mu    sync.Mutex
	cache map[string]cachedRow
}

// Config configures a Client.
type Config struct {
	DSN string
}

// NewClient opens dsn and ensures the auth_tokens/auth_audit tables
// exist.
func NewClient(cfg Config) (*Client, error) {
	const op = "authstore.postgres.NewClient"

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	c := &Client{db: db, cache: make(map[string]cachedRow)}
	if err := c.initTables(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initTables(ctx context.Context) error {
	const op = "authstore.postgres.initTables"

	schema := `
		CREATE TABLE IF NOT EXISTS auth_tokens (
			token VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			display_name VARCHAR(255),
			email VARCHAR(255),
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP,
			last_used_at TIMESTAMP,
			permissions JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_auth_tokens_user ON auth_tokens(user_id);

		CREATE TABLE IF NOT EXISTS auth_audit (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			user_id VARCHAR(255) NOT NULL,
			token VARCHAR(255) NOT NULL,
			action VARCHAR(32) NOT NULL,
			error_message TEXT,
			client_info JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_auth_audit_user ON auth_audit(user_id, timestamp DESC);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

// CreateToken generates a fresh token and inserts it inside a single
// transaction.
func (c *Client) CreateToken(ctx context.Context, userID, displayName, email string, permissions []string, expiresAt *int64) (*authstore.Token, error) {
	const op = "authstore.postgres.CreateToken"

	token, err := authstore.GenerateToken()
	if err != nil {
		return nil, err
	}

	permJSON, err := json.Marshal(permissions)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}

	var expiresAtTime *time.Time
	if expiresAt != nil {
		t := time.Unix(*expiresAt, 0).UTC()
		expiresAtTime = &t
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer tx.Rollback()

	createdAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_tokens (token, user_id, display_name, email, enabled, created_at, expires_at, permissions)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)
	`, token, userID, nullableString(displayName), nullableString(email), createdAt, expiresAtTime, permJSON)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	return &authstore.Token{
		Token: token, UserID: userID, DisplayName: displayName, Email: email,
		Enabled: true, Permissions: permissions, CreatedAt: createdAt, ExpiresAt: expiresAtTime,
	}, nil
}

// Validate mirrors auth.py's validate_token branch-for-branch: a
// not-found or disabled token is an auth_failed audit entry, an
// expired token is its own action, a bound-user_id mismatch is
// denied (the token is valid but does not belong to the caller), and
// only a fully-passing check writes success and bumps last_used_at.
func (c *Client) Validate(ctx context.Context, token, userID, clientIP, userAgent string) (*authstore.ValidationResult, error) {
	const op = "authstore.postgres.Validate"

	row, err := c.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}

	clientInfo, _ := json.Marshal(map[string]string{"ip": clientIP, "user_agent": userAgent})

	if row == nil {
		c.audit(ctx, userID, token, authstore.ActionAuthFailed, "invalid token", clientInfo)
		return &authstore.ValidationResult{OK: false, Error: "invalid authentication token"}, nil
	}
	if !row.Enabled {
		c.audit(ctx, userID, token, authstore.ActionAuthFailed, "token disabled", clientInfo)
		return &authstore.ValidationResult{OK: false, Error: "this token has been disabled"}, nil
	}
	if row.ExpiresAt.Valid && time.Now().UTC().After(row.ExpiresAt.Time) {
		msg := fmt.Sprintf("token expired on %s", row.ExpiresAt.Time.Format("2006-01-02"))
		c.audit(ctx, userID, token, authstore.ActionExpired, msg, clientInfo)
		return &authstore.ValidationResult{OK: false, Error: msg}, nil
	}
	if row.UserID != userID {
		msg := fmt.Sprintf("user_id mismatch: token belongs to %q", row.UserID)
		c.audit(ctx, userID, token, authstore.ActionDenied, msg, clientInfo)
		return &authstore.ValidationResult{OK: false, Error: msg}, nil
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE auth_tokens SET last_used_at = $1 WHERE token = $2`, time.Now().UTC(), token); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	c.invalidate(token)
	c.audit(ctx, userID, token, authstore.ActionSuccess, "authentication successful", clientInfo)

	return &authstore.ValidationResult{
		OK: true, UserID: row.UserID, DisplayName: row.DisplayName.String, Permissions: row.Permissions,
	}, nil
}

func (c *Client) lookupToken(ctx context.Context, token string) (*tokenRow, error) {
	const op = "authstore.postgres.lookupToken"

	c.mu.Lock()
	if cached, ok := c.cache[token]; ok && time.Since(cached.fetchedAt) < cacheTTL {
		row := cached.row
		c.mu.Unlock()
		return &row, nil
	}
	c.mu.Unlock()

	var row tokenRow
	var permJSON []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT token, user_id, display_name, email, enabled, expires_at, permissions
		FROM auth_tokens WHERE token = $1
	`, token).Scan(&row.Token, &row.UserID, &row.DisplayName, &row.Email, &row.Enabled, &row.ExpiresAt, &permJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if len(permJSON) > 0 {
		if err := json.Unmarshal(permJSON, &row.Permissions); err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
	}

	c.mu.Lock()
	c.cache[token] = cachedRow{row: row, fetchedAt: time.Now()}
	c.mu.Unlock()

	return &row, nil
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	delete(c.cache, token)
	c.mu.Unlock()
}

func (c *Client) invalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token := range c.cache {
		if hasPrefix(token, prefix) {
			delete(c.cache, token)
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// audit inserts an append-only audit row. Errors are discarded, as in
// auth.py's _log_auth_attempt: a failing audit write never fails the
// auth decision that produced it.
func (c *Client) audit(ctx context.Context, userID, token string, action authstore.Action, message string, clientInfo []byte) {
	_, _ = c.db.ExecContext(ctx, `
		INSERT INTO auth_audit (timestamp, user_id, token, action, error_message, client_info)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, time.Now().UTC(), userID, token, string(action), message, clientInfo)
}

func (c *Client) Revoke(ctx context.Context, prefix string) (int, error) {
	return c.setEnabled(ctx, prefix, false, authstore.ActionRevoked)
}

func (c *Client) Enable(ctx context.Context, prefix string) (int, error) {
	return c.setEnabled(ctx, prefix, true, "")
}

func (c *Client) setEnabled(ctx context.Context, prefix string, enabled bool, auditAction authstore.Action) (int, error) {
	const op = "authstore.postgres.setEnabled"

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT token, user_id FROM auth_tokens WHERE token LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, op, err)
	}
	var affected []struct{ token, userID string }
	for rows.Next() {
		var t, u string
		if err := rows.Scan(&t, &u); err != nil {
			rows.Close()
			return 0, apperr.New(apperr.Internal, op, err)
		}
		affected = append(affected, struct{ token, userID string }{t, u})
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `UPDATE auth_tokens SET enabled = $1 WHERE token LIKE $2 || '%'`, enabled, prefix); err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, op, err)
	}

	for _, a := range affected {
		c.invalidate(a.token)
		if auditAction != "" {
			c.audit(ctx, a.userID, a.token, auditAction, fmt.Sprintf("token %s via admin prefix %q", auditAction, prefix), nil)
		}
	}
	return len(affected), nil
}

func (c *Client) Delete(ctx context.Context, prefix string) (int, error) {
	const op = "authstore.postgres.Delete"

	res, err := c.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, apperr.New(apperr.StoreUnavailable, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.New(apperr.Internal, op, err)
	}
	c.invalidatePrefix(prefix)
	return int(n), nil
}

func (c *Client) List(ctx context.Context, userID string) ([]authstore.Token, error) {
	const op = "authstore.postgres.List"

	query := `SELECT token, user_id, display_name, email, enabled, created_at, expires_at, last_used_at, permissions FROM auth_tokens`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer rows.Close()

	var out []authstore.Token
	for rows.Next() {
		var t authstore.Token
		var display, email sql.NullString
		var expiresAt, lastUsedAt sql.NullTime
		var permJSON []byte
		if err := rows.Scan(&t.Token, &t.UserID, &display, &email, &t.Enabled, &t.CreatedAt, &expiresAt, &lastUsedAt, &permJSON); err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
		t.DisplayName = display.String
		t.Email = email.String
		if expiresAt.Valid {
			v := expiresAt.Time
			t.ExpiresAt = &v
		}
		if lastUsedAt.Valid {
			v := lastUsedAt.Time
			t.LastUsedAt = &v
		}
		if len(permJSON) > 0 {
			_ = json.Unmarshal(permJSON, &t.Permissions)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *Client) Audit(ctx context.Context, userID string, limit int) ([]authstore.AuditEntry, error) {
	const op = "authstore.postgres.Audit"

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, timestamp, user_id, token, action, error_message, client_info FROM auth_audit`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer rows.Close()

	var out []authstore.AuditEntry
	for rows.Next() {
		var e authstore.AuditEntry
		var errMsg sql.NullString
		var clientInfo []byte
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Token, &action, &errMsg, &clientInfo); err != nil {
			return nil, apperr.New(apperr.Internal, op, err)
		}
		e.Action = authstore.Action(action)
		e.ErrorMessage = errMsg.String
		e.ClientInfo = string(clientInfo)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *Client) Stats(ctx context.Context, userID string) (*authstore.Stats, error) {
	const op = "authstore.postgres.Stats"

	stats := &authstore.Stats{UserID: userID}
	var lastActivity sql.NullTime
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN enabled THEN 1 ELSE 0 END), 0), MAX(last_used_at)
		FROM auth_tokens WHERE user_id = $1
	`, userID).Scan(&stats.TotalTokens, &stats.ActiveTokens, &lastActivity)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if lastActivity.Valid {
		v := lastActivity.Time
		stats.LastActivity = &v
	}

	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM auth_audit
		WHERE user_id = $1 AND action = $2 AND timestamp > NOW() - INTERVAL '30 days'
	`, userID, string(authstore.ActionSuccess)).Scan(&stats.Logins30d)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	return stats, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
