package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// Services are the domain services behind the API
type Services struct {
	Auth          AuthService
	Authenticator middleware.Authenticator
	Billing       BillingService
	Plans         PlanService
	Orgs          OrgService
	Folders       FolderService
	Users         UserDirectory
}

// Options configure the HTTP stack around the handlers
type Options struct {
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	Health         *observability.HealthChecker
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	MaxUploadBytes int64
	Tracing        bool
}

// Server is the PatentDesk HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router and middleware stack
func NewServer(services Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	router := mux.NewRouter()
	s := &Server{router: router}

	if opts.Health != nil {
		router.HandleFunc("/healthz", opts.Health.Liveness).Methods("GET")
		router.HandleFunc("/readyz", opts.Health.Readiness).Methods("GET")
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	api := router.PathPrefix("/api").Subrouter()
	if opts.Metrics != nil {
		api.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	authn := middleware.NewAuthMiddleware(services.Authenticator).Handler
	limit := func(next http.Handler) http.Handler { return next }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Handler
	}

	NewAuthHandlers(services.Auth).RegisterRoutes(api, authn, limit)
	NewSubscriptionHandlers(services.Billing, services.Plans).RegisterRoutes(api, authn)
	NewOrgHandlers(services.Orgs).RegisterRoutes(api, authn)
	NewFolderHandlers(services.Folders, opts.MaxUploadBytes).RegisterRoutes(api, authn)
	NewAdminHandlers(services.Users, services.Billing, services.Plans).RegisterRoutes(api, authn)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	maxBody := opts.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = defaultMaxUploadBytes
	}

	var handler http.Handler = router
	handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.MaxBytesMiddleware(maxBody),
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(opts.AllowedOrigins),
	)(handler)
	if opts.Tracing {
		handler = otelhttp.NewHandler(handler, "patentdesk")
	}
	s.handler = handler
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the router for route inspection
func (s *Server) Router() *mux.Router {
	return s.router
}
