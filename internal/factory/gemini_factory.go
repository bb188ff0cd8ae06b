package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/gemini"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
)

// GeminiFactory creates Gemini clients
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates a Gemini client; the API key is required
func (f *GeminiFactory) CreateGenerator() (core.Generator, error) {
	geminiCfg := f.cfg.GetGemini()
	client, err := gemini.NewGeminiClient(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
