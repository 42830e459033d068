package handlers

import (
	"net/http"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/middleware"
	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/monitoring"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	// Limiter throttles registration and verification; nil disables it
	Limiter middleware.Limiter

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites those headers,
	// otherwise clients can pick their own rate-limit key.
	TrustProxyHeaders bool
}

// NewRouter wires every endpoint
func NewRouter(identity *IdentityHandler, health *HealthHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORSMiddleware())
	r.Use(monitoring.HTTPMetricsMiddleware)

	r.Get("/health", health.Health)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		monitoring.Handler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter))
		}
		r.Post("/register-user", identity.RegisterUser)
		r.Post("/verify-password", identity.VerifyPassword)
		r.Post("/verify-face", identity.VerifyFace)
	})

	r.Post("/check-user", identity.CheckUser)
	r.Get("/session", identity.Session)

	return r
}
