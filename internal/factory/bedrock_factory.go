package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/bedrock"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
)

// BedrockFactory creates Bedrock clients
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates a Bedrock client from the default AWS credential chain
func (f *BedrockFactory) CreateGenerator() (core.Generator, error) {
	bedrockCfg := f.cfg.GetBedrock()

	runtime, err := bedrock.NewRuntimeClient(context.Background(), bedrockCfg.Region)
	if err != nil {
		return nil, err
	}

	return bedrock.NewBedrockClient(
		runtime,
		bedrockCfg.ModelID,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		f.logger,
	), nil
}
