package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BEARER AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// TokenParser validates a bearer token and returns the account ID it was issued for.
type TokenParser interface {
	Parse(raw string) (uuid.UUID, error)
}

// AccountLookup loads the account behind a token.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error)
}

const contextKeyCaller contextKey = "caller"

// requireAuth resolves the bearer token into an account and stores it in the
// request context. Tokens of deleted accounts are rejected.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeJSONError(w, r, http.StatusUnauthorized, "not_authenticated", "Authentication credentials were not provided", nil)
			return
		}

		id, err := s.deps.Tokens.Parse(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
			writeJSONError(w, r, http.StatusUnauthorized, "token_not_valid", "Given token not valid", nil)
			return
		}

		caller, err := s.deps.Accounts.GetByID(r.Context(), id)
		if err != nil {
			if shared.IsNotFound(err) {
				writeJSONError(w, r, http.StatusUnauthorized, "user_not_found", "User not found", nil)
				return
			}
			s.logger.Error("caller lookup failed", logger.Err(err), logger.StudentID(id.String()))
			writeJSONError(w, r, http.StatusServiceUnavailable, "service_unavailable", "Try again later", nil)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyCaller, caller)))
	}
}

// callerFrom returns the authenticated account, or nil.
func callerFrom(ctx context.Context) *student.Student {
	caller, _ := ctx.Value(contextKeyCaller).(*student.Student)
	return caller
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
