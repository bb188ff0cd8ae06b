package factory

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/judge"
	"github.com/mikey/mail-clarity/internal/adapters/statistical"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/utils"
)

// ClassifierFactory creates the two classifiers
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStatistical loads the model artifact; a missing or invalid artifact is fatal
func (f *ClassifierFactory) CreateStatistical() (core.Classifier[core.Label], error) {
	c, err := statistical.Load(f.cfg.GetModel().ArtifactPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("%w (build one with spam-train -data <dataset.csv>)", err)
	}
	return c, nil
}

// CreateJudge creates the generative judge. cache may be nil.
func (f *ClassifierFactory) CreateJudge(
	generator core.Generator,
	cache core.VerdictCache,
	textProcessor *utils.TextProcessor,
) (core.Classifier[*core.JudgeResult], error) {
	judgeCfg, err := f.cfg.GetJudge()
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	if cache != nil {
		if ttl, err = NewCacheFactory(f.cfg, f.logger).GetCacheTTL(); err != nil {
			return nil, err
		}
	}

	return judge.New(generator, cache, textProcessor, judge.Options{
		Timeout:     judgeCfg.Timeout,
		MaxBodySize: judgeCfg.MaxBodySize,
		CacheTTL:    ttl,
	}, f.logger), nil
}
