package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/history"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
)

// StoreFactory creates the history store
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryStore creates the JSON store, or the legacy CSV store when configured
func (f *StoreFactory) CreateHistoryStore() (core.HistoryStore, error) {
	historyCfg := f.cfg.GetHistory()

	switch historyCfg.Format {
	case "json":
		f.logger.Info("History store configured", zap.String("format", "json"), zap.String("path", historyCfg.Path))
		return history.NewJSONStore(historyCfg.Path, f.logger), nil
	case "csv":
		f.logger.Info("History store configured", zap.String("format", "csv"), zap.String("path", historyCfg.CSVPath))
		return history.NewCSVStore(historyCfg.CSVPath, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported history format: %s", historyCfg.Format)
	}
}
