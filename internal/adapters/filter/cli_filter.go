package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/mail"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/utils"
)

const cliPreviewLength = 500

// CliFilter implements a command-line interface for spam detection
type CliFilter struct {
	recorder Recorder
	logger   *zap.Logger
	verbose  bool
	out      io.Writer
}

// NewCliFilter creates a new CLI filter that reports to out
func NewCliFilter(recorder Recorder, logger *zap.Logger, verbose bool, out io.Writer) *CliFilter {
	return &CliFilter{
		recorder: recorder,
		logger:   logger,
		verbose:  verbose,
		out:      out,
	}
}

// ProcessEmail classifies and records a raw message, then prints both verdicts.
// A degraded record is printed and returned together with its error.
func (f *CliFilter) ProcessEmail(ctx context.Context, raw io.Reader) (*core.HistoryRecord, error) {
	parsed, err := mail.ParseMessage(raw)
	if err != nil {
		f.logger.Error("Failed to parse email", zap.Error(err))
		return nil, err
	}
	f.logger.Debug("Processing email", zap.String("sender", parsed.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", parsed.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(parsed.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", parsed.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(parsed.Text))

	if f.verbose {
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", utils.Preview(parsed.Text, cliPreviewLength))
	}

	fmt.Fprintf(f.out, "\n=== Analysis ===\n")
	start := time.Now()
	record, err := f.recorder.ClassifyAndRecord(ctx, toMessage(parsed, ""), TypeCLI)
	duration := time.Since(start)
	if record == nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}

	generative := record.Result.Generative
	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Record: %s\n", record.ID)
	fmt.Fprintf(f.out, "Statistical model: %s\n", record.Result.Statistical)
	fmt.Fprintf(f.out, "Generative judge: %s\n", judgeSummary(generative))
	if r := reason(generative); r != "" {
		fmt.Fprintf(f.out, "Reason: %s\n", r)
	}
	if v := generative.Verdict; v != nil {
		if v.Recommendation != "" {
			fmt.Fprintf(f.out, "Recommendation: %s\n", v.Recommendation)
		}
		if len(v.SpamWords) > 0 {
			fmt.Fprintf(f.out, "Spam words: %s\n", strings.Join(v.SpamWords, ", "))
		}
	}
	fmt.Fprintf(f.out, "Label: %s\n", record.Label())
	fmt.Fprintf(f.out, "Agreement: %t\n", record.Agreement())
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	if err != nil {
		fmt.Fprintf(f.out, "Warning: %v\n", err)
	}

	return record, err
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
