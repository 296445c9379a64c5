package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/wordgarden/gateway/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Identity exchange
	ExchangeToken http.HandlerFunc

	// Session routes
	Generate     http.HandlerFunc
	GetUserQuota http.HandlerFunc

	// Admin routes
	Dashboard       http.HandlerFunc
	AddUser         http.HandlerFunc
	RemoveUser      http.HandlerFunc
	SetUserLimits   http.HandlerFunc
	SetGlobalLimits http.HandlerFunc
	ListAuditLogs   http.HandlerFunc

	AuthMiddleware     func(http.Handler) http.Handler
	ActivityMiddleware func(http.Handler) http.Handler
	AdminMiddleware    func(http.Handler) http.Handler
}

// HealthCheck checks one dependency for the readiness endpoint.
type HealthCheck struct {
	Name string
	// Required checks make the service unready when they fail. A nil Check
	// reports the dependency as not configured.
	Required bool
	Check    func(ctx context.Context) error
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins  []string
	ExchangeRateLimiter func(http.Handler) http.Handler
	HealthChecks        []HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Liveness, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for _, c := range cfg.HealthChecks {
			switch {
			case c.Check == nil:
				health[c.Name] = "not configured"
			case c.Check(r.Context()) != nil:
				health[c.Name] = "unhealthy"
				health["status"] = "degraded"
				if c.Required {
					status = http.StatusServiceUnavailable
				}
			default:
				health[c.Name] = "healthy"
			}
		}

		JSON(w, status, health)
	}
	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.ExchangeRateLimiter != nil {
				r.Use(cfg.ExchangeRateLimiter)
			}
			r.Post("/exchange-token", h.ExchangeToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			if h.ActivityMiddleware != nil {
				r.Use(h.ActivityMiddleware)
			}
			r.Get("/user-quota", h.GetUserQuota)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(h.AdminMiddleware)
			if h.ActivityMiddleware != nil {
				r.Use(h.ActivityMiddleware)
			}
			r.Get("/dashboard", h.Dashboard)
			r.Post("/user-add", h.AddUser)
			r.Post("/user-delete", h.RemoveUser)
			r.Post("/user-limit", h.SetUserLimits)
			r.Post("/global-limits", h.SetGlobalLimits)
			r.Get("/audit", h.ListAuditLogs)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		if h.ActivityMiddleware != nil {
			r.Use(h.ActivityMiddleware)
		}
		r.Post("/generate", h.Generate)
	})

	return r
}
