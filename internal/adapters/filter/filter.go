// Package filter classifies mail handed over by the MTA or the command line
package filter

import (
	"context"
	"strings"

	"github.com/mikey/mail-clarity/internal/adapters/mail"
	"github.com/mikey/mail-clarity/internal/core"
)

// Batch types recorded for intake traffic
const (
	TypeCLI  = "cli"
	TypeSMTP = "smtp"
)

// Recorder classifies one message and persists the outcome
type Recorder interface {
	ClassifyAndRecord(ctx context.Context, msg core.Message, batchType string) (*core.HistoryRecord, error)
}

func toMessage(parsed *mail.ParsedMessage, envelopeFrom string) core.Message {
	sender := parsed.From
	if sender == "" {
		sender = envelopeFrom
	}
	return core.Message{
		Content: parsed.Text,
		Sender:  sender,
		Subject: parsed.Subject,
	}
}

// judgeSummary describes the generative outcome in one line
func judgeSummary(result core.JudgeResult) string {
	switch {
	case result.Verdict != nil:
		return string(result.Verdict.Prediction)
	case result.Unparseable():
		return "unparseable"
	case result.Failure != nil:
		return "unavailable"
	default:
		return "none"
	}
}

// reason returns the judge's explanation or the failure message
func reason(result core.JudgeResult) string {
	switch {
	case result.Verdict != nil:
		return result.Verdict.Reason
	case result.Failure != nil:
		return result.Failure.Error
	default:
		return ""
	}
}

// headerValue keeps a header value on a single line
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
