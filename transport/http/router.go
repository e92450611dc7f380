package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/ports"
	"github.com/wizardkeep/warden/service"
)

// RouteLimit is a per-route-group rate limit budget.
type RouteLimit struct {
	Max    int
	Window time.Duration
}

// RouterConfig carries the transport-level policy knobs.
type RouterConfig struct {
	CORSOrigins []string
	AuthLimit   RouteLimit
	APILimit    RouteLimit
	Cookie      CookieConfig
	SessionTTL  time.Duration
}

// SetupRouter wires the middleware pipeline and routes. Stage order per
// request: CORS, rate limit, body validation, authentication,
// authorization, handler.
func SetupRouter(
	authService *service.AuthService,
	profileService *service.ProfileService,
	limiter ports.RateLimiter,
	log *logrus.Logger,
	cfg RouterConfig,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), Metrics(), CORS(cfg.CORSOrigins))

	authHandlers := NewAuthHandlers(authService, cfg.Cookie, cfg.SessionTTL)
	profileHandlers := NewProfileHandlers(profileService)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	auth.Use(RateLimit(limiter, authService, "auth", cfg.Cookie.Name, cfg.AuthLimit.Max, cfg.AuthLimit.Window))
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/verify", authHandlers.Verify)
		auth.POST("/logout", Auth(authService, cfg.Cookie.Name), authHandlers.Logout)
	}

	// Body validation runs before authentication on routes carrying a
	// body, so Auth cannot be attached at the group level here.
	authn := Auth(authService, cfg.Cookie.Name)
	adminOnly := RequireRole(authService, core.RoleAdmin)

	api := router.Group("/api")
	api.Use(RateLimit(limiter, authService, "api", cfg.Cookie.Name, cfg.APILimit.Max, cfg.APILimit.Window))
	{
		api.GET("/me", authn, profileHandlers.Me)
		api.GET("/profile", authn, profileHandlers.GetProfile)
		api.PUT("/profile", ValidateBody[updateProfileRequest](), authn, profileHandlers.UpdateProfile)

		admin := api.Group("/admin")
		{
			admin.GET("/profiles", authn, adminOnly, profileHandlers.ListProfiles)
			admin.PUT("/profiles/:address/role", ValidateBody[setRoleRequest](), authn, adminOnly, profileHandlers.SetRole)
		}
	}

	return router
}
