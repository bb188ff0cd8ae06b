package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

// ParsedMessage is the part of an RFC 822 message the classifiers care about
type ParsedMessage struct {
	From    string
	To      []string
	Subject string
	Date    time.Time
	Text    string
}

// ParseMessage decodes headers and extracts the readable text of a message.
// The first inline text/plain part wins; HTML is reduced to its text when no
// plain part exists. Attachments are skipped.
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	parsed := &ParsedMessage{}
	if subject, err := mr.Header.Subject(); err == nil {
		parsed.Subject = subject
	} else {
		parsed.Subject = mr.Header.Get("Subject")
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		parsed.From = from[0].Address
	} else {
		parsed.From = mr.Header.Get("From")
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, addr := range to {
			parsed.To = append(parsed.To, addr.Address)
		}
	}
	if date, err := mr.Header.Date(); err == nil {
		parsed.Date = date
	}

	var plain, htmlBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			// keep what was read so far
			break
		}

		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		switch {
		case contentType == "" || contentType == "text/plain":
			if plain == "" {
				body, _ := io.ReadAll(part.Body)
				plain = string(body)
			}
		case contentType == "text/html":
			if htmlBody == "" {
				body, _ := io.ReadAll(part.Body)
				htmlBody = string(body)
			}
		}
	}

	switch {
	case strings.TrimSpace(plain) != "":
		parsed.Text = plain
	case htmlBody != "":
		parsed.Text = HTMLText(htmlBody)
	}
	return parsed, nil
}

// HTMLText returns the visible text of an HTML document with whitespace collapsed
func HTMLText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var buf bytes.Buffer
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(buf.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "script" || string(name) == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if (string(name) == "script" || string(name) == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
				buf.WriteByte(' ')
			}
		}
	}
}
