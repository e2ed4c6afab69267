package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenFromRequest returns the bearer token from the Authorization header.
// When allowQuery is set a ?token= parameter is accepted too; browsers
// cannot set headers on WebSocket upgrades.
func TokenFromRequest(r *http.Request, allowQuery bool) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if tok := r.URL.Query().Get("token"); allowQuery && tok != "" {
			return tok, nil
		}
		return "", ErrMissingToken
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(tok), nil
}

// Authenticate resolves the seat a request speaks for.
func (m *JWTManager) Authenticate(r *http.Request, allowQuery bool) (Identity, error) {
	tok, err := TokenFromRequest(r, allowQuery)
	if err != nil {
		return Identity{}, err
	}
	claims, err := m.ValidateToken(tok)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Player: claims.Player, GameID: claims.GameID}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's seat in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := jwtMgr.Authenticate(r, false)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"` + err.Error() + `"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity stores an identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
