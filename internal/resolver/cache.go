package resolver

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/storage"
)

// CacheConfig configures the versioned-cache resolver.
type CacheConfig struct {
	// Prefix is the URL prefix served from local copies, e.g. "https://cdn.example.com/".
	Prefix string
	// UseCache gates the resolver entirely.
	UseCache bool
	// Include limits lookups to relative paths matching one of these
	// doublestar patterns. Empty means every path.
	Include []string
}

// Validate checks the include patterns.
func (c CacheConfig) Validate() error {
	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid cache include pattern %q", p)
		}
	}
	return nil
}

// VersionedCache serves prefixed URLs from the active update bundle, or from
// packaged resources when no update is active. Exactly one of the two roots
// is consulted per request: a file missing from an active update is a miss.
type VersionedCache struct {
	cfg     CacheConfig
	updates UpdateSource
	files   Store
	bundle  Store
	logger  *zap.Logger
}

// NewVersionedCache creates the cache resolver. files reads absolute paths
// under the update root; bundle reads paths relative to the packaged root.
func NewVersionedCache(cfg CacheConfig, updates UpdateSource, files, bundle Store, logger *zap.Logger) (*VersionedCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionedCache{
		cfg:     cfg,
		updates: updates,
		files:   files,
		bundle:  bundle,
		logger:  logger.Named("cache"),
	}, nil
}

// Name implements Named.
func (v *VersionedCache) Name() string { return "versioned-cache" }

// Resolve implements Resolver.
func (v *VersionedCache) Resolve(req Request) *Response {
	if !v.cfg.UseCache || v.cfg.Prefix == "" {
		return nil
	}

	url, ok := req.URL()
	if !ok || !strings.HasPrefix(url, v.cfg.Prefix) {
		return nil
	}

	rel := paths.CleanRelative(strings.TrimPrefix(url, v.cfg.Prefix))
	if rel == "" || !v.included(rel) {
		return nil
	}

	if root := v.activeRoot(); root != "" {
		return v.open(v.files, filepath.Join(root, filepath.FromSlash(rel)), "update")
	}
	return v.open(v.bundle, rel, "bundle")
}

func (v *VersionedCache) activeRoot() string {
	if v.updates == nil {
		return ""
	}
	return v.updates.ActivePath()
}

func (v *VersionedCache) included(rel string) bool {
	if len(v.cfg.Include) == 0 {
		return true
	}
	for _, p := range v.cfg.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (v *VersionedCache) open(store Store, target, source string) *Response {
	if store == nil || !store.Exists(target) {
		v.logger.Debug("cache miss", zap.String("source", source), zap.String("path", target))
		return nil
	}

	body, err := store.Open(target)
	if err != nil {
		v.logger.Warn("cache open failed",
			zap.String("source", source),
			zap.String("path", target),
			zap.Error(err),
		)
		return nil
	}

	mimeType, body := storage.DetectMIME(target, body)
	return served(body, mimeType, storage.Encoding(mimeType))
}
