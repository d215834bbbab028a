package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/resolver"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

// Interceptor is the part of the web-view controller the bridge drives.
type Interceptor interface {
	Intercept(req resolver.Request) *resolver.Response
}

// BridgeConfig maps loopback request paths onto the URLs the page would
// have requested in a native web-view.
type BridgeConfig struct {
	// Scheme is the internal scheme, e.g. "internal:".
	Scheme string
	// InternalPath is the loopback path standing in for Scheme + "//".
	InternalPath string
	// CachePath is the loopback path standing in for CachePrefix.
	CachePath   string
	CachePrefix string
}

// DefaultBridgeConfig returns the standard loopback mapping.
func DefaultBridgeConfig(cachePrefix string) BridgeConfig {
	return BridgeConfig{
		Scheme:       paths.InternalScheme,
		InternalPath: "/_internal/",
		CachePath:    "/_cache/",
		CachePrefix:  cachePrefix,
	}
}

// RequestURL reconstructs the URL a request stands for:
//
//	/_internal/page.html    -> internal://page.html
//	/_cache/assets/app.js   -> <cache prefix>assets/app.js
//	/anything/else?q=1      -> http://<host>/anything/else?q=1
func (b BridgeConfig) RequestURL(r *http.Request) string {
	p := r.URL.EscapedPath()
	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}

	if b.InternalPath != "" && strings.HasPrefix(p, b.InternalPath) {
		scheme := b.Scheme
		if scheme == "" {
			scheme = paths.InternalScheme
		}
		return scheme + "//" + strings.TrimPrefix(p, b.InternalPath) + query
	}
	if b.CachePath != "" && b.CachePrefix != "" && strings.HasPrefix(p, b.CachePath) {
		return b.CachePrefix + strings.TrimPrefix(p, b.CachePath) + query
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + p + query
}

// Intercept returns a handler that offers each request to the controller.
// A served response is written and the chain aborted; a not-ready sentinel
// becomes 404; a nil result passes the request to the next handler.
func Intercept(ctrl Interceptor, cfg BridgeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		resp := ctrl.Intercept(resolver.NewRequest(cfg.RequestURL(c.Request)))
		if resp == nil {
			c.Next()
			return
		}
		defer resp.Close()

		if !resp.Ready || resp.Body == nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		contentType := resp.MimeType
		if resp.Encoding != "" {
			contentType += "; charset=" + resp.Encoding
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}

		c.DataFromReader(status, -1, contentType, resp.Body, nil)
		c.Abort()
	}
}

// NotFound is the terminal handler for requests no resolver served.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found", "path": c.Request.URL.Path})
}
