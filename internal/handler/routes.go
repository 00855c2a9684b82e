package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/peoplehub/people-api/internal/middleware"
	"github.com/peoplehub/people-api/internal/ratelimit"
	"github.com/peoplehub/people-api/internal/service"
	"github.com/peoplehub/people-api/pkg/config"
	"github.com/peoplehub/people-api/pkg/logger"
	corsmiddleware "github.com/peoplehub/people-api/pkg/middleware/cors"
	reqidmiddleware "github.com/peoplehub/people-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler wired into the router.
type Handlers struct {
	Auth     *AuthHandler
	User     *UserHandler
	Employee *EmployeeHandler
	Metrics  *MetricsHandler
}

// RouterDeps collects everything NewRouter needs besides the handlers.
type RouterDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Limiter     *ratelimit.Limiter
	AuthService *service.AuthService
	Metrics     *service.MetricsService
}

// registerFraction keeps registration at a reduced share of the auth
// tier so a burst of signups cannot crowd out logins from the same
// address.
const registerFraction = 0.6

// NewRouter assembles the gin engine: recovery, request IDs, logging,
// CORS and metrics run globally; per-route throttle policies and the
// JWT guard apply inside the API groups.
func NewRouter(deps RouterDeps, h Handlers) *gin.Engine {
	cfg := deps.Config

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	throttle := func(policy middleware.ThrottlePolicy) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, policy, deps.Logger)
	}
	authTier := middleware.ThrottlePolicy{Tier: ratelimit.TierAuth}
	longTier := middleware.ThrottlePolicy{Tier: ratelimit.TierLong}
	mediumTier := middleware.ThrottlePolicy{Tier: ratelimit.TierMedium}

	// Probes and metrics are never throttled.
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", throttle(middleware.ThrottlePolicy{Tier: ratelimit.TierAuth, Fraction: registerFraction}), h.Auth.Register)
		auth.POST("/login", throttle(authTier), h.Auth.Login)
		auth.POST("/refresh", throttle(authTier), h.Auth.Refresh)
		auth.POST("/logout", throttle(authTier), h.Auth.Logout)
		auth.GET("/me", throttle(longTier), middleware.JWT(deps.AuthService), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.AuthService))

	users := protected.Group("/users")
	{
		users.GET("", throttle(longTier), h.User.List)
		users.GET("/:id", throttle(longTier), h.User.Get)
		users.POST("", throttle(mediumTier), h.User.Create)
		users.PUT("/:id", throttle(mediumTier), h.User.Update)
		users.DELETE("/:id", throttle(mediumTier), h.User.Delete)
	}

	employees := protected.Group("/employees")
	{
		employees.GET("", throttle(longTier), h.Employee.List)
		employees.GET("/:id", throttle(longTier), h.Employee.Get)
		employees.POST("", throttle(mediumTier), h.Employee.Create)
		employees.PATCH("/:id", throttle(mediumTier), h.Employee.Update)
		employees.DELETE("/:id", throttle(mediumTier), h.Employee.Delete)
	}

	return r
}
