package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/tracing"
)

// AdminPrefix is the route group of the shell's own endpoints.
const AdminPrefix = "/_shell"

// RouterOptions configures the bridge router.
type RouterOptions struct {
	Interceptor Interceptor
	Handlers    *Handlers
	Bridge      BridgeConfig
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
	// Gatherer backs GET /_shell/metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	// CORS without origins falls back to middleware.DefaultCORSConfig.
	CORS middleware.CORSConfig
	// RateLimit applies to the admin group. Nil disables it.
	RateLimit *middleware.RateLimitConfig
}

// NewRouter builds the bridge: admin routes under /_shell and resource
// interception for every other path.
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(opts.Logger))
	if opts.Metrics != nil {
		router.Use(monitoring.Middleware(opts.Metrics))
	}
	corsCfg := opts.CORS
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg = middleware.DefaultCORSConfig()
	}
	router.Use(middleware.CORS(corsCfg))

	admin := router.Group(AdminPrefix)
	if opts.RateLimit != nil {
		admin.Use(middleware.RateLimit(*opts.RateLimit))
	}
	if h := opts.Handlers; h != nil {
		admin.GET("/health", h.Health)
		admin.GET("/version", h.GetVersion)
		admin.POST("/version/activate", h.Activate)
		admin.POST("/version/deactivate", h.Deactivate)
		admin.POST("/version/install", h.Install)
		admin.DELETE("/version/:version", h.Remove)
		admin.GET("/version/:version/files", h.Files)
		admin.POST("/version/:version/verify", h.Verify)
		admin.GET("/metrics/json", h.MetricsSnapshot)
	}
	if opts.Gatherer != nil {
		admin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	router.NoRoute(Intercept(opts.Interceptor, opts.Bridge), NotFound)
	return router
}
