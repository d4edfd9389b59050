package booking

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"taskwhisker/internal/api"
	"taskwhisker/internal/auth"
	"taskwhisker/internal/user"
)

// Reader is the read side the booking pages use.
type Reader interface {
	GetDetail(ctx context.Context, id string) (*Detail, error)
	ListForSitter(ctx context.Context, sitterID string, since time.Time) ([]Summary, error)
}

type SitterLister interface {
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
}

type Handlers struct {
	Service *Service
	Reader  Reader
	Sitters SitterLister
}

type MutationResponse struct {
	Outcome Outcome `json:"outcome"`
	Applied bool    `json:"applied"`
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Reader.GetDetail(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "booking not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, d)
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		auth.WriteGateError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req NewBooking
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	b, err := h.Service.Create(r.Context(), actor.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (h Handlers) CreateTest(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		auth.WriteGateError(w, r, auth.ErrUnauthenticated)
		return
	}
	b, err := h.Service.CreateTestBooking(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (h Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actorID, id string) (Outcome, error) {
		return h.Service.Confirm(ctx, actorID, id)
	})
}

func (h Handlers) Complete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, actorID, id string) (Outcome, error) {
		return h.Service.Complete(ctx, actorID, id)
	})
}

func (h Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	h.mutate(w, r, func(ctx context.Context, actorID, id string) (Outcome, error) {
		return h.Service.Cancel(ctx, actorID, id, req)
	})
}

type AssignSitterRequest struct {
	SitterID *string `json:"sitterId"`
}

func (h Handlers) AssignSitter(w http.ResponseWriter, r *http.Request) {
	var req AssignSitterRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	h.mutate(w, r, func(ctx context.Context, actorID, id string) (Outcome, error) {
		return h.Service.AssignSitter(ctx, actorID, id, req.SitterID)
	})
}

func (h Handlers) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, id string) (Outcome, error)) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		auth.WriteGateError(w, r, auth.ErrUnauthenticated)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}

	outcome, err := fn(r.Context(), actor.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, MutationResponse{Outcome: outcome, Applied: outcome.Applied()})
}

func (h Handlers) ListSitters(w http.ResponseWriter, r *http.Request) {
	sitters, err := h.Sitters.ListByRole(r.Context(), user.RoleSitter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]Person, 0, len(sitters))
	for _, s := range sitters {
		items = append(items, Person{ID: s.ID, Name: s.DisplayName(), Email: s.Email})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) CancelReasons(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"presets":              h.Service.Policy.CancelReasons,
		"other":                CancelReasonOther,
		"maxLength":            maxCancelReasonRunes,
		"requiredForConfirmed": true,
		"requiredForRequested": h.Service.Policy.CancelReasonRequiredForRequest,
	})
}

// SitterBookings lists the signed-in sitter's upcoming bookings.
func (h Handlers) SitterBookings(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		auth.WriteGateError(w, r, auth.ErrUnauthenticated)
		return
	}
	local := h.Service.now().In(h.Service.Location)
	since := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.Service.Location)

	items, err := h.Reader.ListForSitter(r.Context(), actor.UserID, since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve ValidationError
	if errors.As(err, &ve) {
		api.WriteError(w, http.StatusUnprocessableEntity, ve.Code, ve.Message)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("booking request failed")
	api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
