package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/version"
)

// Versions is the version manager surface exposed over the admin routes.
type Versions interface {
	State() version.State
	Versions() ([]string, error)
	Activate(v string) error
	Deactivate() error
	Remove(v string) error
	Index(ctx context.Context, v string) ([]string, error)
	Verify(ctx context.Context, v string) error
}

// Installer installs a downloaded archive as a version.
type Installer interface {
	Install(ctx context.Context, v, archive string) error
}

// Fetcher downloads a bundle archive.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) (int64, error)
}

// Handlers serves the /_shell admin routes.
type Handlers struct {
	versions   Versions
	installer  Installer
	fetcher    Fetcher
	lifecycle  interface{ Bound() bool }
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	downloadTo string
}

// NewHandlers creates the admin handlers. installer and fetcher may be nil,
// which disables the install route.
func NewHandlers(versions Versions, installer Installer, fetcher Fetcher, lifecycle interface{ Bound() bool }, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		versions:   versions,
		installer:  installer,
		fetcher:    fetcher,
		lifecycle:  lifecycle,
		metrics:    metrics,
		logger:     logger.Named("admin"),
		downloadTo: os.TempDir(),
	}
}

// Health reports liveness and whether the web-view is attached.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"bound":  h.lifecycle != nil && h.lifecycle.Bound(),
		"active": h.versions.State().Active,
	})
}

// GetVersion returns the active version and every installed version.
func (h *Handlers) GetVersion(c *gin.Context) {
	installed, err := h.versions.Versions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	state := h.versions.State()
	c.JSON(http.StatusOK, gin.H{
		"active":     state.Active,
		"previous":   state.Previous,
		"updated_at": state.UpdatedAt,
		"installed":  installed,
	})
}

// VersionRequest names a version.
type VersionRequest struct {
	Version string `json:"version" binding:"required"`
}

// Activate switches the active update bundle.
func (h *Handlers) Activate(c *gin.Context) {
	var req VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version is required"})
		return
	}

	if err := h.versions.Activate(req.Version); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("version activated", zap.String("version", req.Version))
	c.JSON(http.StatusOK, gin.H{"success": true, "active": req.Version})
}

// Deactivate reverts to packaged resources.
func (h *Handlers) Deactivate(c *gin.Context) {
	if err := h.versions.Deactivate(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("version deactivated")
	c.JSON(http.StatusOK, gin.H{"success": true, "active": ""})
}

// InstallRequest asks the shell to fetch and install a bundle.
type InstallRequest struct {
	Version  string `json:"version" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Activate bool   `json:"activate"`
}

// Install downloads a bundle archive, installs it and optionally activates it.
func (h *Handlers) Install(c *gin.Context) {
	if h.installer == nil || h.fetcher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "installs are disabled"})
		return
	}

	var req InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version and url are required"})
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be http or https"})
		return
	}
	if _, err := version.DetectFormat(parsed.Path); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	err = h.install(c.Request.Context(), req, path.Base(parsed.Path))
	if h.metrics != nil {
		h.metrics.RecordInstall(err)
	}
	if err != nil {
		h.logger.Warn("install failed", zap.String("version", req.Version), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"version":   req.Version,
		"activated": req.Activate,
		"time_ms":   time.Since(start).Milliseconds(),
	})
}

func (h *Handlers) install(ctx context.Context, req InstallRequest, name string) error {
	dir, err := os.MkdirTemp(h.downloadTo, "webshell-dl-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	archive := filepath.Join(dir, name)
	if _, err := h.fetcher.Fetch(ctx, req.URL, archive); err != nil {
		return err
	}
	if err := h.installer.Install(ctx, req.Version, archive); err != nil {
		return err
	}
	if req.Activate {
		return h.versions.Activate(req.Version)
	}
	return nil
}

// Remove deletes an installed version. The active version is refused with 409.
func (h *Handlers) Remove(c *gin.Context) {
	v := c.Param("version")
	if err := h.versions.Remove(v); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("version removed", zap.String("version", v))
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": v})
}

// Files lists the files of an installed version.
func (h *Handlers) Files(c *gin.Context) {
	v := c.Param("version")
	files, err := h.versions.Index(c.Request.Context(), v)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v, "files": files, "count": len(files)})
}

// Verify checks an installed version against its manifest.
func (h *Handlers) Verify(c *gin.Context) {
	v := c.Param("version")
	if err := h.versions.Verify(c.Request.Context(), v); err != nil {
		h.logger.Warn("verification failed", zap.String("version", v), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": v, "valid": true})
}

// MetricsSnapshot returns intercept counters as JSON.
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, version.ErrUnknownVersion):
		return http.StatusNotFound
	case errors.Is(err, version.ErrVersionExists), errors.Is(err, version.ErrVersionActive):
		return http.StatusConflict
	case errors.Is(err, version.ErrChecksumMismatch),
		errors.Is(err, version.ErrUnsafeArchivePath),
		errors.Is(err, version.ErrVersionMismatch),
		errors.Is(err, version.ErrUnsupportedArchive),
		errors.Is(err, paths.ErrInvalidVersion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
