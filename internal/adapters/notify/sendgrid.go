package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailSender is the part of the SendGrid client the notifier uses
type EmailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier emails notifications through SendGrid
type SendGridNotifier struct {
	client EmailSender
	from   *mail.Email
	to     *mail.Email
	logger *zap.Logger
}

// NewSendGridClient creates a SendGrid API client
func NewSendGridClient(apiKey string) *sendgrid.Client {
	return sendgrid.NewSendClient(apiKey)
}

// NewSendGridNotifier creates a notifier sending from one address to another
func NewSendGridNotifier(client EmailSender, from, to string, logger *zap.Logger) *SendGridNotifier {
	return &SendGridNotifier{
		client: client,
		from:   mail.NewEmail("Mail Clarity", from),
		to:     mail.NewEmail("", to),
		logger: logger,
	}
}

// Notify emails text; the subject reflects the verdict line
func (n *SendGridNotifier) Notify(ctx context.Context, text string) error {
	subject := "Message classified: not spam"
	if strings.Contains(text, "Spam Detected") {
		subject = "Message classified: spam"
	}

	message := mail.NewSingleEmail(n.from, subject, n.to, text, "")
	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", resp.StatusCode, resp.Body)
	}

	n.logger.Debug("SendGrid notification sent", zap.Int("status", resp.StatusCode))
	return nil
}
