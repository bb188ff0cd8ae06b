package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/factory"
	"github.com/mikey/mail-clarity/internal/normalize"
	"github.com/mikey/mail-clarity/internal/utils"
)

// serviceParams collects the collaborators of the classification service
type serviceParams struct {
	dig.In

	Config      *config.Config
	Logger      *zap.Logger
	Normalizer  core.Normalizer
	Statistical core.Classifier[core.Label]
	Judge       core.Classifier[*core.JudgeResult]
	Store       core.HistoryStore
	Fetcher     core.MailFetcher
	Notifier    core.Notifier
	Trusted     core.TrustedSenders
}

func newClassificationService(p serviceParams) *core.ClassificationService {
	return core.NewClassificationService(
		p.Normalizer,
		p.Statistical,
		p.Judge,
		p.Store,
		p.Fetcher,
		p.Notifier,
		p.Trusted,
		p.Logger,
		p.Config.GetModel().Concurrency,
	)
}

// provideClassification registers the factories, both classifiers, the history store,
// the service and the mail intake. Callers provide config, logger and collaborators.
func provideClassification(container *dig.Container) error {
	// Register factories
	for _, constructor := range []any{
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewClassifierFactory,
		factory.NewStoreFactory,
		factory.NewCollaboratorFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processing
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}
	if err := container.Provide(func() core.Normalizer {
		return normalize.New()
	}); err != nil {
		return err
	}

	// Register generation service and classifiers
	if err := container.Provide(func(f *factory.LLMFactory) (core.Generator, error) {
		return f.CreateGenerator()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier[core.Label], error) {
		return f.CreateStatistical()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		f *factory.ClassifierFactory,
		generator core.Generator,
		cache core.VerdictCache,
		textProcessor *utils.TextProcessor,
	) (core.Classifier[*core.JudgeResult], error) {
		return f.CreateJudge(generator, cache, textProcessor)
	}); err != nil {
		return err
	}

	// Register history store
	if err := container.Provide(func(f *factory.StoreFactory) (core.HistoryStore, error) {
		return f.CreateHistoryStore()
	}); err != nil {
		return err
	}

	// Register classification service
	if err := container.Provide(newClassificationService); err != nil {
		return err
	}

	// Register mail intake
	return container.Provide(func(f *factory.FilterFactory) (core.MailFilter, error) {
		return f.CreateEmailFilter()
	})
}
