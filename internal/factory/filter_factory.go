package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/filter"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
)

// FilterFactory creates mail intake filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassificationService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.ClassificationService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates the configured intake; "none" yields nil
func (f *FilterFactory) CreateEmailFilter() (core.MailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "", "none":
		return nil, nil
	case "postfix":
		postfixCfg, err := f.cfg.GetPostfix()
		if err != nil {
			return nil, err
		}
		return filter.NewPostfixFilter(f.service, f.logger, filter.PostfixConfig{
			ListenAddress:   postfixCfg.ListenAddress,
			BlockSpam:       postfixCfg.BlockSpam,
			SpamHeader:      postfixCfg.SpamHeader,
			ModelHeader:     postfixCfg.ModelHeader,
			ReasonHeader:    postfixCfg.ReasonHeader,
			PostfixAddress:  postfixCfg.ReinjectAddress,
			PostfixPort:     postfixCfg.ReinjectPort,
			PostfixEnabled:  postfixCfg.ReinjectEnabled,
			SubjectPrefix:   postfixCfg.SubjectPrefix,
			ModifySubject:   postfixCfg.ModifySubject,
			ClassifyTimeout: postfixCfg.ClassifyTimeout,
		}), nil
	case "cli":
		return filter.NewCliFilter(f.service, f.logger, f.cfg.GetBool("cli.verbose"), os.Stdout), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
