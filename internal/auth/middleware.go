package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"taskwhisker/internal/api"
	"taskwhisker/internal/user"
)

// SessionAuth attaches the bearer token's session to the request context.
// A missing or invalid token leaves the request without a session; RequireRole decides what that means.
func SessionAuth(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := tokens.Verify(raw)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("session token rejected")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireRole resolves the actor for every request in the group and rejects the rest.
func RequireRole(gate Gate, roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := gate.ResolveActor(r.Context(), roles...)
			if err != nil {
				WriteGateError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WriteGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
	case errors.Is(err, ErrForbidden):
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "not allowed for this role")
	case errors.Is(err, ErrStaleSession):
		api.WriteError(w, http.StatusUnauthorized, "STALE_SESSION", ErrStaleSession.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("resolve actor")
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
