package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/infra/config"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/handlers"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/transport/http/middleware"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Users        *usecase.UserService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	isProd := deps.Config.App.Env == "production"
	isDev := deps.Config.App.Env == "development"

	if isProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger, "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authRequired := middleware.RequireAuth(deps.Services.Auth)

	checks := map[string]handlers.ReadinessCheck{}
	if deps.Database != nil {
		checks["postgres"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)
	healthHandler.RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Registration,
			deps.Logger,
			handlers.WithNotificationDispatcher(handlers.NewLoggingNotificationDispatcher(deps.Logger)),
			handlers.WithRememberTokenTTL(deps.Config.Auth.RememberTokenTTL),
			handlers.WithVerificationTTL(deps.Config.Auth.VerificationTTL),
			handlers.WithSecureCookies(isProd),
			handlers.WithDevMode(isDev),
		)
		authHandler.RegisterRoutes(api, handlers.AuthRouteOptions{
			AuthRequired:   authRequired,
			LoginLimits:    buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
			RegisterLimits: buildRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
		})

		profileHandler := handlers.NewProfileHandler(deps.Services.Users)
		profileHandler.RegisterRoutes(api, authRequired)

		adminGroup := api.Group("/admin")
		adminGroup.Use(authRequired, middleware.RequirePermission(domain.PermissionManageUsers))
		adminHandler := handlers.NewAdminUsersHandler(deps.Services.Users)
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
