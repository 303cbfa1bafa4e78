package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/api/handler"
	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/api/middleware"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// Dependencies is everything the router wires into handlers and middleware.
type Dependencies struct {
	Auth   ports.AuthService
	Tokens ports.TokenVerifier
	Units  ports.UnitOfWorkFactory

	RateLimitStore ports.RateLimitStore
	RateLimitRules []domain.RateLimitRule
	Cache          domain.CachePolicy

	// Readiness lists the dependencies checked by /health/ready.
	Readiness map[string]handler.Pinger

	// ExposeMetrics registers request metrics and serves /metrics. It may
	// be enabled for one router per process only.
	ExposeMetrics bool

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	if d.ExposeMetrics {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  metrics.Namespace,
			Registerer: metrics.Registry,
			Skipper:    operationalPath,
		}))
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}

	// Admission runs before authentication so rejected clients cost nothing.
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Store:   d.RateLimitStore,
		Rules:   d.RateLimitRules,
		Skipper: operationalPath,
		Log:     d.Log,
	}))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	authn := middleware.Auth(d.Tokens, d.Log)
	adminOnly := middleware.RBAC(domain.RoleAdministrator)
	cached := middleware.CacheHeaders(d.Cache)

	api := e.Group("/api")

	// --- Account routes ---
	accounts := handler.NewAccountHandler(d.Auth, d.Log)
	api.POST("/account/register", accounts.Register)
	api.POST("/account/login", accounts.Login)
	api.POST("/account/:id/roles", accounts.AssignRoles, authn, adminOnly)

	data := api.Group("", middleware.UnitOfWork(d.Units, d.Log))

	// --- Hotel routes ---
	hotels := handler.NewHotelHandler()
	data.Match(readMethods, "/hotels", hotels.List, cached)
	nameRoutes(data.Match(readMethods, "/hotels/:id", hotels.Get, cached), "hotels.get")
	data.POST("/hotels", hotels.Create, authn, adminOnly)
	data.PUT("/hotels/:id", hotels.Update, authn, adminOnly)
	data.DELETE("/hotels/:id", hotels.Delete, authn, adminOnly)

	// --- Country routes ---
	countries := handler.NewCountryHandler()
	data.Match(readMethods, "/countries", countries.List, cached)
	nameRoutes(data.Match(readMethods, "/countries/:id", countries.Get, cached), "countries.get")
	data.POST("/countries", countries.Create, authn, adminOnly)
	data.PUT("/countries/:id", countries.Update, authn, adminOnly)
	data.DELETE("/countries/:id", countries.Delete, authn, adminOnly)

	return e
}

// readMethods are served by the cached read routes.
var readMethods = []string{http.MethodGet, http.MethodHead}

func nameRoutes(routes []*echo.Route, name string) {
	for _, r := range routes {
		r.Name = name
	}
}

// operationalPath exempts probes and metrics scraping from admission control
// and request metrics.
func operationalPath(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health")
}

