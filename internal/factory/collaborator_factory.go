package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/mail"
	"github.com/mikey/mail-clarity/internal/adapters/notify"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/whitelist"
)

// CollaboratorFactory creates the mail retrieval and notification collaborators
type CollaboratorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCollaboratorFactory creates a new collaborator factory
func NewCollaboratorFactory(cfg *config.Config, logger *zap.Logger) *CollaboratorFactory {
	return &CollaboratorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailFetcher returns nil when retrieval is disabled or no account is configured
func (f *CollaboratorFactory) CreateMailFetcher() core.MailFetcher {
	mailCfg := f.cfg.GetMail()
	if !mailCfg.Enabled || mailCfg.Username == "" {
		f.logger.Info("Mail retrieval disabled")
		return nil
	}

	return mail.NewIMAPFetcher(mail.Config{
		Address:       mailCfg.Address,
		Username:      mailCfg.Username,
		Password:      mailCfg.Password,
		Mailbox:       mailCfg.Mailbox,
		MaxMessages:   mailCfg.MaxMessages,
		PreviewLength: mailCfg.PreviewLength,
		Insecure:      mailCfg.Insecure,
	}, f.logger)
}

// CreateNotifier returns nil for the "none" provider
func (f *CollaboratorFactory) CreateNotifier() (core.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()

	switch notifyCfg.Provider {
	case "", "none":
		return nil, nil
	case "telegram":
		if notifyCfg.TelegramChatID == 0 {
			return nil, fmt.Errorf("telegram chat id is required")
		}
		bot, err := notify.NewTelegramBot(notifyCfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		return notify.NewTelegramNotifier(bot, notifyCfg.TelegramChatID, f.logger), nil
	case "sendgrid":
		if notifyCfg.SendGridAPIKey == "" || notifyCfg.SendGridFrom == "" || notifyCfg.SendGridTo == "" {
			return nil, fmt.Errorf("sendgrid api key, sender and recipient are required")
		}
		client := notify.NewSendGridClient(notifyCfg.SendGridAPIKey)
		return notify.NewSendGridNotifier(client, notifyCfg.SendGridFrom, notifyCfg.SendGridTo, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification provider: %s", notifyCfg.Provider)
	}
}

// CreateTrustedSenders builds the whitelist of senders that never trigger notifications
func (f *CollaboratorFactory) CreateTrustedSenders() core.TrustedSenders {
	return whitelist.NewChecker(f.cfg.GetNotify().TrustedDomains, f.logger)
}
