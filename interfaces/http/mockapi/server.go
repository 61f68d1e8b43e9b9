package mockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Server serves a local stand-in for the ProspectWatch API. It speaks the
// same wire contract as production so the client can be exercised offline.
type Server struct {
	state    *State
	logger   *zap.Logger
	validate *validator.Validate
}

// NewServer wires the mock API around an in-memory dataset.
func NewServer(state *State, logger *zap.Logger) *Server {
	return &Server{
		state:    state,
		logger:   logger,
		validate: validator.New(),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)
			r.Get("/auth/session", s.handleSession)
			r.Post("/auth/logout", s.handleLogout)

			r.Route("/companies/tracked", func(r chi.Router) {
				r.Get("/", s.handleListCompanies)
				r.Post("/", s.handleTrackCompany)
				r.Patch("/{companyID}", s.handlePatchCompany)
				r.Delete("/{companyID}", s.handleUntrackCompany)
			})

			r.Get("/updates", s.handleListUpdates)
			r.Post("/updates/mark-read", s.handleMarkRead)

			r.Get("/organization", s.handleOrganization)
			r.Get("/organization/members", s.handleMembers)
			r.Get("/billing/plan", s.handlePlan)
		})
	})

	return r
}

// requestLogger records one line per request with status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
