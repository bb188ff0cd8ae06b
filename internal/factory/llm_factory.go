package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/judge"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
)

// LLMFactory creates the generation service client for the configured provider
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates the provider client wrapped in retries and a circuit breaker
func (f *LLMFactory) CreateGenerator() (core.Generator, error) {
	base, err := f.createProvider()
	if err != nil {
		return nil, err
	}

	judgeCfg, err := f.cfg.GetJudge()
	if err != nil {
		return nil, err
	}

	f.logger.Info("Generation service configured",
		zap.String("provider", base.Name()),
		zap.Int("max_retries", judgeCfg.MaxRetries))

	return judge.NewResilientGenerator(base, judge.BreakerSettings{
		MaxRequests:         judgeCfg.Breaker.MaxRequests,
		Interval:            judgeCfg.Breaker.Interval,
		Timeout:             judgeCfg.Breaker.Timeout,
		ConsecutiveFailures: judgeCfg.Breaker.ConsecutiveFailures,
	}, judgeCfg.MaxRetries, judgeCfg.RetryBase, f.logger), nil
}

func (f *LLMFactory) createProvider() (core.Generator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger).CreateGenerator()
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger).CreateGenerator()
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger).CreateGenerator()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
