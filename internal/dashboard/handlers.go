package dashboard

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"taskwhisker/internal/api"
)

type Handlers struct {
	Source   Source
	Location *time.Location
	Now      func() time.Time
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	q := ResolveQuery(r.URL.Query(), now, h.Location)

	data, err := Load(r.Context(), h.Source, q)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load dashboard")
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, data)
}
