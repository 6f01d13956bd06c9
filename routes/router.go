package routes

import (
	"log/slog"
	"net/http"
	"time"

	"civicreport-be/controllers"
	"civicreport-be/middlewares"
	"civicreport-be/repository"
	authUtils "civicreport-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Issues repository.IssueRepository
	Users  repository.UserRepository
	Tokens *authUtils.TokenIssuer
	Logger *slog.Logger

	// RateCounter backs the issue creation limit; nil disables it.
	RateCounter middlewares.RateCounter
	RatePrefix  string
	DailyLimit  int

	AllowedOrigins []string
	Cookie         controllers.CookieOptions
	RequestTimeout time.Duration

	// Checks are extra readiness probes next to the issue store.
	Checks map[string]controllers.Check
	// Registry receives the HTTP metrics; a fresh one is used when nil.
	Registry *prometheus.Registry
}

// NewRouter wires middlewares, controllers and routes into a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.RequestLogger(logger),
		middlewares.NewMetrics(registry).Handler(),
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
			ExposeHeaders:    []string{middlewares.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	checks := map[string]controllers.Check{"issues": deps.Issues.Ping}
	for name, check := range deps.Checks {
		checks[name] = check
	}
	health := controllers.NewHealthController(checks)
	r.GET("/healthz", health.Live)
	r.GET("/readyz", health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	requireAuth := middlewares.AuthMiddleware(deps.Tokens)
	rateLimit := middlewares.IssueRateLimiter(deps.RateCounter, deps.RatePrefix, deps.DailyLimit, 24*time.Hour)

	api := r.Group("/api")
	optionalAuth := middlewares.OptionalAuth(deps.Tokens)
	IssueRoutes(api, controllers.NewIssueController(deps.Issues, logger, deps.RequestTimeout), requireAuth, optionalAuth, rateLimit)
	AuthRoutes(api, controllers.NewAuthController(deps.Users, deps.Tokens, deps.Cookie, logger, deps.RequestTimeout), requireAuth)

	return r
}
