package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/anon-inbox/internal/infra/config"
	"github.com/arklim/anon-inbox/internal/transport/http/handlers"
	"github.com/arklim/anon-inbox/internal/transport/http/middleware"
	"github.com/arklim/anon-inbox/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Acceptance   *usecase.AcceptanceService
	Inbox        *usecase.InboxService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Checkers    []handlers.ReadinessChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.Logger(deps.Logger))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.NewErrorResponse(c, usecase.KindNotFound, "route not found"))
	})

	healthHandler := handlers.NewHealthHandler(deps.Logger, deps.Checkers...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	limits := newLimitSet(deps)
	requireAuth := middleware.RequireAuth(deps.Services.Auth)

	api := r.Group("/api/v1")
	{
		registration := handlers.NewRegistrationHandler(deps.Services.Registration)
		auth := handlers.NewAuthHandler(deps.Services.Auth)

		authGroup := api.Group("/auth")
		authGroup.POST("/sign-up", append(limits.signUp, registration.SignUp)...)
		authGroup.GET("/check-username", registration.CheckUsername)
		authGroup.POST("/verify", append(limits.verify, registration.Verify)...)
		authGroup.POST("/verify/resend", append(limits.verify, registration.Resend)...)
		authGroup.POST("/sign-in", append(limits.signIn, auth.SignIn)...)

		messages := handlers.NewMessageHandler(deps.Services.Inbox)
		acceptance := handlers.NewAcceptanceHandler(deps.Services.Acceptance)

		api.POST("/messages", append(limits.send, messages.Send)...)

		me := api.Group("/me", requireAuth)
		me.GET("/accept-messages", acceptance.Get)
		me.POST("/accept-messages", acceptance.Set)
		me.GET("/messages", messages.List)
		me.GET("/summary", messages.Summary)
		me.DELETE("/messages/:id", messages.Delete)
	}

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type limitSet struct {
	signUp []gin.HandlerFunc
	signIn []gin.HandlerFunc
	verify []gin.HandlerFunc
	send   []gin.HandlerFunc
}

func newLimitSet(deps Dependencies) limitSet {
	if deps.RateLimiter == nil || !deps.Config.RateLimit.Enabled {
		return limitSet{}
	}

	cfg := deps.Config.RateLimit
	rule := func(name string, limit int) []gin.HandlerFunc {
		if limit <= 0 {
			return nil
		}
		return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      limit,
			Window:     cfg.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})}
	}

	return limitSet{
		signUp: rule("sign-up", cfg.RegisterMaxAttempts),
		signIn: rule("sign-in", cfg.SignInMaxAttempts),
		verify: rule("verify", cfg.VerifyMaxAttempts),
		send:   rule("send", cfg.SendMaxAttempts),
	}
}
