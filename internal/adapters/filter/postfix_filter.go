package filter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/mail"
	"github.com/mikey/mail-clarity/internal/core"
)

// PostfixConfig configures the SMTP content filter
type PostfixConfig struct {
	ListenAddress   string
	BlockSpam       bool
	SpamHeader      string
	ModelHeader     string
	ReasonHeader    string
	PostfixAddress  string
	PostfixPort     int
	PostfixEnabled  bool
	SubjectPrefix   string
	ModifySubject   bool
	ClassifyTimeout time.Duration
}

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	recorder Recorder
	logger   *zap.Logger
	cfg      PostfixConfig
	server   *smtp.Server
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(recorder Recorder, logger *zap.Logger, cfg PostfixConfig) *PostfixFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[**SPAM**] "
	}
	if cfg.SpamHeader == "" {
		cfg.SpamHeader = "X-Spam-Status"
	}
	if cfg.ModelHeader == "" {
		cfg.ModelHeader = "X-Spam-Model"
	}
	if cfg.ReasonHeader == "" {
		cfg.ReasonHeader = "X-Spam-Reason"
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = time.Minute
	}

	return &PostfixFilter{
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("Postfix filter starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies and records a raw message without forwarding it
func (f *PostfixFilter) ProcessEmail(ctx context.Context, raw io.Reader) (*core.HistoryRecord, error) {
	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, err
	}
	return f.classify(ctx, data, "")
}

func (f *PostfixFilter) classify(ctx context.Context, raw []byte, envelopeFrom string) (*core.HistoryRecord, error) {
	parsed, err := mail.ParseMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return f.recorder.ClassifyAndRecord(ctx, toMessage(parsed, envelopeFrom), TypeSMTP)
}

// annotate adds the verdict headers to the raw message and leaves the body untouched
func (f *PostfixFilter) annotate(raw []byte, record *core.HistoryRecord, analysisErr error) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	h := gomail.Header{Header: message.Header{Header: th}}

	isSpam := record != nil && record.IsSpam()
	model := "error"
	explanation := fmt.Sprintf("Error during analysis: %v", analysisErr)
	if record != nil {
		model = string(record.Result.Statistical)
		explanation = reason(record.Result.Generative)
	}

	h.Set(f.cfg.SpamHeader, fmt.Sprintf("%t", isSpam))
	h.Set(f.cfg.ModelHeader, model)
	h.Set(f.cfg.ReasonHeader, headerValue(explanation))
	if analysisErr != nil {
		h.Set("X-Spam-Analysis-Error", headerValue(analysisErr.Error()))
	}

	if isSpam && f.cfg.ModifySubject && f.cfg.SubjectPrefix != "" {
		subject, err := h.Subject()
		if err != nil {
			subject = h.Get("Subject")
		}
		if !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
			h.SetSubject(f.cfg.SubjectPrefix + subject)
		}
	}

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, h.Header.Header); err != nil {
		return nil, err
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// sendToPostfix sends the processed email back to Postfix on the configured port
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.cfg.PostfixAddress, fmt.Sprintf("%d", f.cfg.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// the message is already accepted at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message, then rejects it or forwards it with verdict headers
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter

	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ClassifyTimeout)
	defer cancel()

	record, analysisErr := f.classify(ctx, raw, s.sender)
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.String("sender", s.sender),
			zap.Bool("recorded", record != nil),
			zap.Error(analysisErr))
	}

	isSpam := record != nil && record.IsSpam()
	if isSpam && f.cfg.BlockSpam && analysisErr == nil {
		f.logger.Info("Rejecting spam email",
			zap.String("from", s.sender),
			zap.String("id", record.ID),
			zap.String("reason", reason(record.Result.Generative)))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Rejected as spam",
		}
	}

	annotated, err := f.annotate(raw, record, analysisErr)
	if err != nil {
		f.logger.Error("Failed to annotate message", zap.Error(err))
		return err
	}

	if f.cfg.PostfixEnabled {
		if err := f.sendToPostfix(s.sender, s.recipients, annotated); err != nil {
			f.logger.Error("Failed to send email back to Postfix",
				zap.String("sender", s.sender),
				zap.Error(err))
			return err
		}
	} else {
		f.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	f.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.Bool("is_spam", isSpam),
		zap.Bool("recorded", record != nil))

	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
