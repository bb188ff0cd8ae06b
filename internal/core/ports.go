package core

import (
	"context"
	"io"
)

// Classifier is a spam classification capability producing a T for a piece of text
type Classifier[T any] interface {
	// Classify classifies the given text
	Classify(ctx context.Context, text string) (T, error)
}

// Generator defines the interface for the external text generation service
type Generator interface {
	// Generate returns the model's free-form answer to the prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider and model in logs and errors
	Name() string
}

// VerdictCache defines the interface for caching judge verdicts
type VerdictCache interface {
	// Get retrieves a cached entry
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// HistoryStore defines the persisted classification log
type HistoryStore interface {
	// Append persists the record and returns its identifier
	Append(ctx context.Context, record *HistoryRecord) (string, error)

	// List returns all records in insertion order
	List(ctx context.Context) ([]HistoryRecord, error)

	// DeleteMany removes the records with the given ids and returns the remaining count
	DeleteMany(ctx context.Context, ids []string) (int, error)

	// Clear removes all records
	Clear(ctx context.Context) error

	// Projection returns the reporting view of all records
	Projection(ctx context.Context) ([]ProjectionRow, error)
}

// MailFetcher retrieves recent messages from a mailbox
type MailFetcher interface {
	Fetch(ctx context.Context, window FetchWindow) ([]FetchedEmail, error)
}

// Notifier delivers a formatted message to a fixed recipient
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Normalizer turns raw text into the token string the statistical model expects
type Normalizer interface {
	Normalize(text string) string
}

// TrustedSenders decides whether a sender is exempt from notifications
type TrustedSenders interface {
	IsWhitelisted(from string) bool
}

// MailFilter classifies raw RFC 822 messages handed over by a mail intake
type MailFilter interface {
	// ProcessEmail classifies and records a raw message
	ProcessEmail(ctx context.Context, raw io.Reader) (*HistoryRecord, error)

	// Start starts the intake
	Start() error

	// Stop stops the intake
	Stop() error
}
