// Package authstore issues, validates, and audits MCP access tokens.
//
// Grounded on original_source/mcp-server/auth.py's TokenAuthenticator
// (validate-then-audit flow, exact failure-message shapes) and
// original_source/scripts/mcp-token.py's admin CLI operations
// (create/list/revoke/enable/delete/audit/stats), re-expressed against
// a Go database/sql Store rather than asyncpg, with tokens generated
// by crypto/rand instead of Python's secrets module.
package authstore

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

// Action is one of spec.md §3's five audit outcomes.
type Action string

const (
	ActionSuccess    Action = "success"
	ActionAuthFailed Action = "auth_failed"
	ActionRevoked    Action = "revoked"
	ActionExpired    Action = "expired"
	ActionDenied     Action = "denied"
)

// tokenPrefix gives every issued token a stable, visually identifiable
// prefix, matching generate_token()'s "mcp_" prefix.
const tokenPrefix = "mcp_"

// Token is one row of the token table.
type Token struct {
	Token       string
	UserID      string
	DisplayName string
	Email       string
	Enabled     bool
	Permissions []string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
}

// AuditEntry is one append-only audit row.
type AuditEntry struct {
	ID           int64
	Timestamp    time.Time
	UserID       string
	Token        string
	Action       Action
	ErrorMessage string
	ClientInfo   string
}

// ValidationResult is validate's outcome.
type ValidationResult struct {
	OK          bool
	UserID      string
	DisplayName string
	Permissions []string
	Error       string
}

// Stats is stats' per-user summary.
type Stats struct {
	UserID       string
	TotalTokens  int
	ActiveTokens int
	LastActivity *time.Time
	Logins30d    int
}

// GenerateToken produces a token with at least 256 bits of entropy
// (32 random bytes, base64url-encoded) under the stable "mcp_" prefix,
// matching generate_token()'s secrets.token_urlsafe(32).
func GenerateToken() (string, error) {
	const op = "authstore.GenerateToken"
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
