package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"taskwhisker/internal/api"
	"taskwhisker/internal/user"
)

type Handlers struct {
	Tokens Tokens
	Users  UserLookup
	Gate   Gate
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user.User `json:"user"`
}

func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "email and password are required")
		return
	}

	u, err := h.Users.FindByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			hlog.FromRequest(r).Error().Err(err).Msg("login lookup")
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		api.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials.Error())
		return
	}
	if err := CheckPassword(u.HashedPassword, req.Password); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials.Error())
		return
	}

	token, exp, err := h.Tokens.Issue(*u)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("issue session token")
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	hlog.FromRequest(r).Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("login")

	api.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp, User: *u})
}

// Me reports who the session belongs to, for either role.
func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Gate.ResolveActor(r.Context(), user.RoleOperator, user.RoleSitter)
	if err != nil {
		WriteGateError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"userId": actor.UserID,
		"email":  actor.Email,
		"name":   actor.Name,
		"role":   actor.Role,
	})
}
