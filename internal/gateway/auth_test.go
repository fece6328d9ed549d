package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/authstore"
)

// fakeAuthStore is a minimal authstore.Store good enough to exercise
// the Authenticate middleware without a real database.
type fakeAuthStore struct {
	result *authstore.ValidationResult
	err    error
}

func (f *fakeAuthStore) CreateToken(ctx context.Context, userID, displayName, email string, permissions []string, expiresAt *int64) (*authstore.Token, error) {
	return nil, nil
}
func (f *fakeAuthStore) Validate(ctx context.Context, token, userID, clientIP, userAgent string) (*authstore.ValidationResult, error) {
	return f.result, f.err
}
func (f *fakeAuthStore) Revoke(ctx context.Context, prefix string) (int, error) { return 0, nil }
func (f *fakeAuthStore) Enable(ctx context.Context, prefix string) (int, error) { return 0, nil }
func (f *fakeAuthStore) Delete(ctx context.Context, prefix string) (int, error) { return 0, nil }
func (f *fakeAuthStore) List(ctx context.Context, userID string) ([]authstore.Token, error) {
	return nil, nil
}
func (f *fakeAuthStore) Audit(ctx context.Context, userID string, limit int) ([]authstore.AuditEntry, error) {
	return nil, nil
}
func (f *fakeAuthStore) Stats(ctx context.Context, userID string) (*authstore.Stats, error) {
	return nil, nil
}
func (f *fakeAuthStore) Close() error { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(caller.UserID))
	})
}

func TestAuthenticateRejectsMissingHeaders(t *testing.T) {
	store := &fakeAuthStore{}
	h := Authenticate(store, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/mcp/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	store := &fakeAuthStore{result: &authstore.ValidationResult{OK: false, Error: "token not found"}}
	h := Authenticate(store, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/mcp/", nil)
	req.Header.Set(TokenHeader, "garbage")
	req.Header.Set(UserIDHeader, "alice@x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateAllowsValidToken(t *testing.T) {
	store := &fakeAuthStore{result: &authstore.ValidationResult{OK: true, UserID: "alice@x"}}
	h := Authenticate(store, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/mcp/", nil)
	req.Header.Set(TokenHeader, "mcp_validtoken")
	req.Header.Set(UserIDHeader, "alice@x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice@x", rec.Body.String())
}
