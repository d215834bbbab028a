package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/AgentOS/webshell/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/resolver"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/storage"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/version"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/webview"
)

// Server wraps the loopback bridge and the components behind it.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	controller *webview.Controller
	versions   *version.Manager
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer wires storage, the version manager and the web-view controller
// from cfg and builds the bridge router.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Logging.Level
		l, err := logging.New(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing web shell",
		zap.String("sandbox_root", cfg.Shell.SandboxRoot),
		zap.String("bundle_root", cfg.Shell.BundleRoot),
		zap.String("update_root", cfg.Update.Root),
		zap.String("cache_prefix", cfg.Shell.CachePrefix),
		zap.Bool("use_cache", cfg.Shell.UseCache),
	)

	var (
		metrics  *monitoring.Metrics
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = monitoring.NewMetrics(registry)
	}

	versions, err := version.NewManager(cfg.Update.Root, logger.Component("version"))
	if err != nil {
		return nil, fmt.Errorf("failed to open update root: %w", err)
	}
	if metrics != nil {
		if versions.Active() != "" {
			metrics.UpdateActive.Set(1)
		}
		versions.OnChange(metrics.SetActiveVersion)
	}
	if cfg.Update.Watch {
		if err := versions.Watch(); err != nil {
			logger.Warn("Update state watch disabled", zap.Error(err))
		}
	}

	translator := paths.Translator{Root: cfg.Shell.SandboxRoot, Scheme: cfg.Shell.InternalScheme}
	controller, err := webview.New(webview.Options{
		Translator: translator,
		Sandbox:    storage.NewDir(cfg.Shell.SandboxRoot),
		Files:      storage.NewDir(versions.Root()),
		Bundle:     storage.NewBundleDir(cfg.Shell.BundleRoot),
		Updates:    versions,
		Cache: resolver.CacheConfig{
			Prefix:   cfg.Shell.CachePrefix,
			UseCache: cfg.Shell.UseCache,
			Include:  cfg.Shell.CacheInclude,
		},
		Logger:  logger.Logger,
		Metrics: metrics,
	})
	if err != nil {
		versions.Stop()
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	controller.Attach()

	downloader := version.NewDownloader(version.DownloadConfig{
		MaxRetries: cfg.Update.MaxRetries,
		MinWait:    cfg.Update.RetryWaitMin,
		MaxWait:    cfg.Update.RetryWaitMax,
		Timeout:    cfg.Update.Timeout,
		UserAgent:  version.DefaultDownloadConfig().UserAgent,
	}, logger.Logger)
	installer := version.NewInstaller(versions, logger.Logger)
	handlers := httpapi.NewHandlers(versions, installer, downloader, controller, metrics, logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := httpapi.RouterOptions{
		Interceptor: controller,
		Handlers:    handlers,
		Bridge: httpapi.BridgeConfig{
			Scheme:       cfg.Shell.InternalScheme,
			InternalPath: "/_internal/",
			CachePath:    "/_cache/",
			CachePrefix:  cfg.Shell.CachePrefix,
		},
		Metrics: metrics,
		Logger:  logger.Logger,
		CORS:    middleware.DefaultCORSConfig(),
	}
	if registry != nil {
		opts.Gatherer = registry
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		opts.RateLimit = &rl
	}
	router := httpapi.NewRouter(opts)

	logger.Info("Web shell initialized", zap.String("active_version", versions.Active()))

	return &Server{
		router:     router,
		controller: controller,
		versions:   versions,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
}

// Handler exposes the bridge router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves the bridge until Shutdown is called.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting bridge", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then detaches
// the web-view and stops watching update state.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down bridge...")

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			s.logger.Error("Bridge shutdown failed", zap.Error(shutdownErr))
			err = fmt.Errorf("failed to shut down bridge: %w", shutdownErr)
		}
	}

	s.controller.Detach()
	s.versions.Stop()
	_ = s.logger.Sync()
	return err
}
