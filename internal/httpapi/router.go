package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"taskwhisker/internal/api"
	"taskwhisker/internal/auth"
	"taskwhisker/internal/booking"
	"taskwhisker/internal/dashboard"
	"taskwhisker/internal/user"
	"taskwhisker/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Logger zerolog.Logger
	Now    func() time.Time
}

func NewRouter(deps Dependencies) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	for _, mw := range api.RequestLogging(deps.Logger) {
		r.Use(mw)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	usersRepo := user.NewRepository(deps.DB)
	tokens := auth.Tokens{
		Secret: []byte(deps.Cfg.Auth.JWTSecret),
		TTL:    deps.Cfg.Auth.SessionTTL,
		Now:    deps.Now,
	}
	gate := auth.Gate{Users: usersRepo}
	authHandlers := auth.Handlers{Tokens: tokens, Users: usersRepo, Gate: gate}

	bookingRepo := booking.NewRepository(deps.DB)
	bookingService := booking.NewService(bookingRepo, deps.Cfg.Booking, deps.Cfg.Location)
	bookingService.Now = deps.Now
	bookingHandlers := booking.Handlers{
		Service: bookingService,
		Reader:  bookingRepo,
		Sitters: usersRepo,
	}
	dashboardHandlers := dashboard.Handlers{
		Source:   dashboard.NewRepository(deps.DB),
		Location: deps.Cfg.Location,
		Now:      deps.Now,
	}

	r.Route("/v1", func(r chi.Router) {
		// The dashboard front-end is served from its own origin and sends a bearer token.
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.DashboardAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAgeSeconds:  600,
		}))

		r.Post("/auth/login", authHandlers.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.SessionAuth(tokens))

			r.Get("/me", authHandlers.Me)

			// Operator console
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(gate, user.RoleOperator))

				r.Get("/dashboard", dashboardHandlers.Get)
				r.Get("/sitters", bookingHandlers.ListSitters)
				r.Get("/cancel-reasons", bookingHandlers.CancelReasons)

				r.Post("/bookings", bookingHandlers.Create)
				r.Post("/bookings/test", bookingHandlers.CreateTest)
				r.Get("/bookings/{id}", bookingHandlers.Get)
				r.Post("/bookings/{id}/confirm", bookingHandlers.Confirm)
				r.Post("/bookings/{id}/cancel", bookingHandlers.Cancel)
				r.Post("/bookings/{id}/complete", bookingHandlers.Complete)
				r.Post("/bookings/{id}/sitter", bookingHandlers.AssignSitter)
			})

			// Sitter view (read-only)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(gate, user.RoleSitter))

				r.Get("/sitter/bookings", bookingHandlers.SitterBookings)
			})
		})
	})

	return r
}
