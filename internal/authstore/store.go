package authstore

import "context"

// Store is satisfied by every auth-store backend. Postgres is the only
// implementation (spec.md §4.5 names Postgres explicitly; the token
// and audit tables are relational and low-volume, unlike the vector
// store's per-backend proliferation).
type Store interface {
	// CreateToken generates a new token for userID and persists it.
	// permissions may be nil (no scoping). expiresAt of nil means the
	// token never expires.
	CreateToken(ctx context.Context, userID, displayName, email string, permissions []string, expiresAt *int64) (*Token, error)

	// Validate runs the exact sequence auth.py's validate_token
	// implements: not-found, disabled, expired, user_id mismatch, then
	// success, auditing every branch. clientIP/userAgent are recorded
	// on the audit row only; they are never used for the decision
	// itself.
	Validate(ctx context.Context, token, userID, clientIP, userAgent string) (*ValidationResult, error)

	// Revoke disables every token whose value starts with prefix,
	// already-disabled tokens included, auditing an ActionRevoked entry
	// per matched token. Returns the number of tokens matched.
	Revoke(ctx context.Context, prefix string) (int, error)

	// Enable enables every token whose value starts with prefix,
	// already-enabled tokens included. Returns the number of tokens
	// matched.
	Enable(ctx context.Context, prefix string) (int, error)

	// Delete permanently removes every token whose value starts with
	// prefix. Returns the number of tokens deleted.
	Delete(ctx context.Context, prefix string) (int, error)

	// List returns every token, optionally filtered to a single user.
	List(ctx context.Context, userID string) ([]Token, error)

	// Audit returns the most recent audit entries, optionally filtered
	// to a single user, newest first, capped at limit.
	Audit(ctx context.Context, userID string, limit int) ([]AuditEntry, error)

	// Stats aggregates a single user's token usage.
	Stats(ctx context.Context, userID string) (*Stats, error)

	Close() error
}
