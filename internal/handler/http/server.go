package http

import (
	"Taglink-Backend/internal/auth"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// ServerOptions holds the HTTP surface settings.
type ServerOptions struct {
	AllowedOrigins []string
	// RateLimitRPM caps API requests per client IP per minute; zero disables the limit.
	RateLimitRPM   int
	MetricsEnabled bool
}

// Server wires handlers into routes
type Server struct {
	linksHandler     *LinksHandler
	domainsHandler   *DomainsHandler
	analyticsHandler *AnalyticsHandler
	quotaHandler     *QuotaHandler
	redirectHandler  *RedirectHandler
	healthHandler    *HealthHandler
	authMiddleware   *auth.Middleware
	resolver         Resolver
	opts             ServerOptions
	log              *zap.Logger
}

func NewServer(
	linksHandler *LinksHandler,
	domainsHandler *DomainsHandler,
	analyticsHandler *AnalyticsHandler,
	quotaHandler *QuotaHandler,
	redirectHandler *RedirectHandler,
	healthHandler *HealthHandler,
	authMiddleware *auth.Middleware,
	resolver Resolver,
	opts ServerOptions,
	log *zap.Logger,
) *Server {
	return &Server{
		linksHandler:     linksHandler,
		domainsHandler:   domainsHandler,
		analyticsHandler: analyticsHandler,
		quotaHandler:     quotaHandler,
		redirectHandler:  redirectHandler,
		healthHandler:    healthHandler,
		authMiddleware:   authMiddleware,
		resolver:         resolver,
		opts:             opts,
		log:              log,
	}
}

// SetupRoutes returns the root handler. Requests for the platform domain reach the API and
// /r/{code}; requests for any other host are treated as custom domain redirects.
func (s *Server) SetupRoutes() http.Handler {
	api := s.apiRouter()
	custom := s.customDomainRouter()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.resolver.IsDefaultHost(r.Host) {
			api.ServeHTTP(w, r)
			return
		}
		custom.ServeHTTP(w, r)
	})
}

func (s *Server) baseRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	return r
}

func (s *Server) apiRouter() chi.Router {
	r := s.baseRouter()
	// Global so OPTIONS preflight is answered before routing.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	if s.opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Get("/r/{code}", s.redirectHandler.HandleRedirect)

	r.Group(func(r chi.Router) {
		if s.opts.RateLimitRPM > 0 {
			r.Use(httprate.LimitByIP(s.opts.RateLimitRPM, time.Minute))
		}
		r.Use(s.authMiddleware.RequireAuth)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", s.linksHandler.CreateLink)
			r.Get("/", s.linksHandler.ListLinks)
			r.Get("/{id}", s.linksHandler.GetLink)
			r.Delete("/{id}", s.linksHandler.DeleteLink)
		})

		r.Route("/domains", func(r chi.Router) {
			r.Post("/", s.domainsHandler.RegisterDomain)
			r.Get("/", s.domainsHandler.ListDomains)
			r.Get("/{id}", s.domainsHandler.GetDomain)
			r.Delete("/{id}", s.domainsHandler.DeleteDomain)
			r.Put("/{id}/verify", s.domainsHandler.VerifyDomain)
			r.Post("/{id}/token", s.domainsHandler.RegenerateToken)
		})

		r.Get("/analytics", s.analyticsHandler.GetAnalytics)
		r.Get("/quota", s.quotaHandler.GetQuota)
	})

	return r
}

// Custom domains serve codes from the root; /r/{code} is accepted as well.
func (s *Server) customDomainRouter() chi.Router {
	r := s.baseRouter()
	r.Get("/health", s.healthHandler.Health)
	r.Get("/ready", s.healthHandler.Ready)
	r.Get("/r/{code}", s.redirectHandler.HandleRedirect)
	r.Get("/{code}", s.redirectHandler.HandleRedirect)
	return r
}
