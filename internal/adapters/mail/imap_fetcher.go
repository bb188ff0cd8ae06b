// Package mail reads messages from an IMAP mailbox and decodes MIME content.
package mail

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/utils"
)

// Config holds the mailbox connection settings
type Config struct {
	Address       string
	Username      string
	Password      string
	Mailbox       string
	MaxMessages   int
	PreviewLength int
	// Insecure connects without TLS; only meant for local servers
	Insecure bool
}

// IMAPFetcher retrieves the newest messages of a mailbox
type IMAPFetcher struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewIMAPFetcher creates a fetcher. Zero limits fall back to 10 messages and
// 600-character previews.
func NewIMAPFetcher(cfg Config, logger *zap.Logger) *IMAPFetcher {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 10
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = 600
	}
	return &IMAPFetcher{cfg: cfg, logger: logger, now: time.Now}
}

func (f *IMAPFetcher) dial() (*client.Client, error) {
	if f.cfg.Insecure {
		return client.Dial(f.cfg.Address)
	}
	return client.DialTLS(f.cfg.Address, nil)
}

// Fetch returns up to MaxMessages messages received within the window, newest first
func (f *IMAPFetcher) Fetch(ctx context.Context, window core.FetchWindow) ([]core.FetchedEmail, error) {
	c, err := f.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", f.cfg.Address, err)
	}
	// The IMAP client has no context support, so cancellation drops the connection
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()
	defer c.Logout()

	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	if _, err := c.Select(f.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", f.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = f.now().Add(-window.Duration())
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}

	latest := newestFirst(seqNums, f.cfg.MaxMessages)
	if len(latest) == 0 {
		return []core.FetchedEmail{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(latest...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchInternalDate}

	messages := make(chan *imap.Message, len(latest))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	bySeq := make(map[uint32]core.FetchedEmail, len(latest))
	for msg := range messages {
		email, err := f.toFetchedEmail(msg, section)
		if err != nil {
			f.logger.Warn("Skipping unreadable message", zap.Uint32("seq", msg.SeqNum), zap.Error(err))
			continue
		}
		bySeq[msg.SeqNum] = email
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}

	emails := make([]core.FetchedEmail, 0, len(bySeq))
	for _, seq := range latest {
		if email, ok := bySeq[seq]; ok {
			emails = append(emails, email)
		}
	}

	f.logger.Info("Fetched emails",
		zap.String("mailbox", f.cfg.Mailbox),
		zap.String("window", string(window)),
		zap.Int("matched", len(seqNums)),
		zap.Int("returned", len(emails)))

	return emails, nil
}

func (f *IMAPFetcher) toFetchedEmail(msg *imap.Message, section *imap.BodySectionName) (core.FetchedEmail, error) {
	body := msg.GetBody(section)
	if body == nil {
		return core.FetchedEmail{}, fmt.Errorf("server returned no body")
	}

	parsed, err := ParseMessage(body)
	if err != nil {
		return core.FetchedEmail{}, err
	}

	email := core.FetchedEmail{
		ID:      strconv.FormatUint(uint64(msg.SeqNum), 10),
		From:    parsed.From,
		Subject: parsed.Subject,
		Date:    parsed.Date,
		Preview: utils.Preview(parsed.Text, f.cfg.PreviewLength),
	}

	if env := msg.Envelope; env != nil {
		if email.From == "" && len(env.From) > 0 {
			addr := env.From[0]
			email.From = fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
		}
		if email.Subject == "" {
			email.Subject = env.Subject
		}
		if email.Date.IsZero() {
			email.Date = env.Date
		}
	}
	if email.Date.IsZero() {
		email.Date = msg.InternalDate
	}
	return email, nil
}

// newestFirst keeps the n highest sequence numbers, highest first
func newestFirst(seqNums []uint32, n int) []uint32 {
	sorted := append([]uint32(nil), seqNums...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
