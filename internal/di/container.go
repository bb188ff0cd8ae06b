package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/api"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/factory"
	"github.com/mikey/mail-clarity/internal/logging"
)

// BuildContainer creates and configures the dependency injection container of the server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}

	// Register cache, mail retrieval and notification collaborators
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CollaboratorFactory) core.MailFetcher {
		return f.CreateMailFetcher()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CollaboratorFactory) (core.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CollaboratorFactory) core.TrustedSenders {
		return f.CreateTrustedSenders()
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(cfg *config.Config, svc *core.ClassificationService, logger *zap.Logger) (*api.Server, error) {
		serverCfg, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		return api.NewServer(svc, serverCfg.ListenAddress, logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
