package handler

import (
	"net/http"
	"time"

	"trackvote/internal/middleware"
	"trackvote/internal/service"
	"trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// AdminAuthenticator logs admins in and validates their session tokens
type AdminAuthenticator interface {
	AdminLogin
	middleware.TokenValidator
}

// RouterConfig carries everything the HTTP surface needs
type RouterConfig struct {
	Services       *service.Services
	Auth           AdminAuthenticator
	Health         *HealthHandler
	AllowedOrigins []string
	Logger         *logger.Logger

	// LoginLimiter throttles admin login attempts per client; nil disables it
	LoginLimiter *middleware.RateLimiter
	// VoteLimiter throttles vote submissions per client; nil disables it
	VoteLimiter *middleware.RateLimiter
}

// NewRouter configures and returns the HTTP router
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.QueryCounter)

	votingHandler := NewVotingHandler(cfg.Services.Votes, cfg.Services.Teams, log)
	adminHandler := NewAdminHandler(cfg.Auth, cfg.Services, log)

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Check)
	}

	r.Route("/api", func(r chi.Router) {
		r.With(limit(cfg.VoteLimiter, log)).Post("/vote", votingHandler.SubmitVote)
		r.Get("/vote/count", votingHandler.GetTrackVoteCount)
		r.Get("/teams/{teamId}", votingHandler.GetTeam)

		r.Route("/admin", func(r chi.Router) {
			r.With(limit(cfg.LoginLimiter, log)).Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminAuth(cfg.Auth, log))

				r.Get("/votes", adminHandler.ListVotes)
				r.Delete("/votes/{id}", adminHandler.DeleteVote)
				r.Get("/export", adminHandler.Export)
				r.Get("/timeline", adminHandler.Timeline)
				r.Get("/dashboard", adminHandler.Dashboard)
				r.Get("/teams", adminHandler.ListTeams)
				r.Post("/teams", adminHandler.CreateTeams)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteJSON(w, errors.NewNotFoundError("Endpoint not found"))
	})

	log.Info("Router configured successfully")
	return r
}

func limit(rl *middleware.RateLimiter, log *logger.Logger) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Limit(rl, log)
}
