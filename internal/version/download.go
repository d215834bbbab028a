package version

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// DownloadConfig tunes bundle downloads.
type DownloadConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	Timeout    time.Duration
	UserAgent  string
}

// DefaultDownloadConfig returns production download settings.
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		MaxRetries: 3,
		MinWait:    time.Second,
		MaxWait:    30 * time.Second,
		Timeout:    5 * time.Minute,
		UserAgent:  "AgentOS-WebShell/1.0",
	}
}

// Downloader fetches update bundle archives. Transient failures (connection
// errors, 5xx, 429) are retried with backoff by the underlying transport.
type Downloader struct {
	client *resty.Client
	logger *zap.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(cfg DownloadConfig, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("download")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.MinWait
	retryClient.RetryWaitMax = cfg.MaxWait
	retryClient.Logger = retryLogger{logger.Sugar()}

	client := resty.NewWithClient(retryClient.StandardClient())
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Downloader{client: client, logger: logger}
}

// Fetch downloads url to dst and returns the number of bytes written. The
// body lands in dst+".part" first; dst only appears once the transfer
// completed with a 2xx status.
func (d *Downloader) Fetch(ctx context.Context, url, dst string) (int64, error) {
	dst, err := filepath.Abs(dst)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	part := dst + ".part"

	resp, err := d.client.R().
		SetContext(ctx).
		SetOutput(part).
		Get(url)
	if err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		os.Remove(part)
		return 0, fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode())
	}

	if err := os.Rename(part, dst); err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("finalize download: %w", err)
	}
	stat, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat download: %w", err)
	}

	d.logger.Info("bundle downloaded",
		zap.String("url", url),
		zap.Int64("bytes", stat.Size()),
		zap.Duration("elapsed", resp.Time()))
	return stat.Size(), nil
}

// retryLogger routes retryablehttp's leveled logging into zap.
type retryLogger struct{ s *zap.SugaredLogger }

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
