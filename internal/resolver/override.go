package resolver

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/storage"
)

// Override serves internal-scheme URLs straight from sandboxed storage.
// It owns the scheme: a matched URL never falls through to later resolvers.
type Override struct {
	translator paths.Translator
	sandbox    Store
	logger     *zap.Logger
}

// NewOverride creates the sandbox override resolver.
func NewOverride(translator paths.Translator, sandbox Store, logger *zap.Logger) *Override {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Override{
		translator: translator,
		sandbox:    sandbox,
		logger:     logger.Named("override"),
	}
}

// Name implements Named.
func (o *Override) Name() string { return "override" }

// Resolve implements Resolver.
func (o *Override) Resolve(req Request) *Response {
	url, ok := req.URL()
	if !ok || !o.translator.IsInternal(url) {
		return nil
	}

	target := o.translator.Translate(url)
	if !o.sandbox.Exists(target) {
		o.logger.Debug("sandbox file missing", zap.String("url", url), zap.String("path", target))
		return NotReady()
	}

	body, err := o.sandbox.Open(target)
	if err != nil {
		o.logger.Warn("sandbox open failed", zap.String("path", target), zap.Error(err))
		return NotReady()
	}

	mimeType, body := storage.DetectMIME(target, body)
	return served(body, mimeType, storage.Encoding(mimeType))
}
