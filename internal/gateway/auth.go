package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/authstore"
)

// TokenHeader and UserIDHeader are the two headers spec.md §4.1
// requires on every gateway request, on both transports.
const (
	TokenHeader  = "X-MCP-Token"
	UserIDHeader = "X-MCP-UserID"
)

// callerKey is the context key under which the authenticated caller
// rides from the HTTP middleware down into a tool handler.
type callerKey struct{}

// Caller is the authenticated identity attached to a tool call.
type Caller struct {
	UserID      string
	DisplayName string
	Permissions []string
}

// CallerFromContext returns the Caller a successful Authenticate call
// attached to ctx, or false if none is present.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Authenticate wraps next with spec.md §4.1 step 1: read the two
// headers, validate against the auth store, and reject with a
// 401-class error on any mismatch. Validate itself writes the
// auth_failed/success audit entries and updates last_used_at; this
// middleware only acts on the verdict.
func Authenticate(store authstore.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		userID := r.Header.Get(UserIDHeader)
		if token == "" || userID == "" {
			writeAuthError(w, apperr.Newf(apperr.Unauthenticated, "gateway.Authenticate", "%s and %s headers are required", TokenHeader, UserIDHeader))
			return
		}

		result, err := store.Validate(r.Context(), token, userID, clientIP(r), r.UserAgent())
		if err != nil {
			writeAuthError(w, apperr.New(apperr.Internal, "gateway.Authenticate", err))
			return
		}
		if !result.OK {
			writeAuthError(w, apperr.Newf(apperr.Unauthenticated, "gateway.Authenticate", "%s", result.Error))
			return
		}

		caller := Caller{UserID: result.UserID, DisplayName: result.DisplayName, Permissions: result.Permissions}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func writeAuthError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": apperr.Detail(err)})
}
