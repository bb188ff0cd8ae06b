// Package judge asks a generation service for a structured spam verdict.
package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/utils"
)

// ParseFailureMessage is stored in place of a verdict when the reply is not usable
const ParseFailureMessage = "Failed to parse generative response"

const promptFormat = `Analyze the following email to determine if it is spam.
Provide the response in a JSON format with the following keys:
- "prediction": "spam" or "not spam".
- "reason": A brief explanation for the classification.
- "recommendation": A suggested action for the user (e.g., "Delete immediately", "Be cautious", "Safe to reply").
- "spam_words": An array of words or phrases from the email that indicate it might be spam. If it's not spam, return an empty array.

Respond only with the JSON object and nothing else.

Email content: "%s"`

// Options tunes a Judge
type Options struct {
	Timeout     time.Duration
	MaxBodySize int
	CacheTTL    time.Duration
}

// Judge classifies raw message content with a generation service
type Judge struct {
	generator     core.Generator
	cache         core.VerdictCache
	textProcessor *utils.TextProcessor
	opts          Options
	logger        *zap.Logger
}

// New creates a Judge. cache may be nil.
func New(generator core.Generator, cache core.VerdictCache, textProcessor *utils.TextProcessor, opts Options, logger *zap.Logger) *Judge {
	return &Judge{
		generator:     generator,
		cache:         cache,
		textProcessor: textProcessor,
		opts:          opts,
		logger:        logger,
	}
}

// BuildPrompt embeds the content in the fixed instruction template
func BuildPrompt(content string) string {
	return fmt.Sprintf(promptFormat, content)
}

// Classify returns a verdict, or a parse failure payload when the reply is unusable.
// Only a failed or timed out call returns an error, always a *core.GenerativeServiceError.
func (j *Judge) Classify(ctx context.Context, content string) (*core.JudgeResult, error) {
	key := cacheKey(content)
	if verdict := j.lookup(ctx, key); verdict != nil {
		return &core.JudgeResult{Verdict: verdict}, nil
	}

	if j.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.opts.Timeout)
		defer cancel()
	}

	prompt := BuildPrompt(j.textProcessor.ProcessText(content, j.opts.MaxBodySize))
	raw, err := j.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, &core.GenerativeServiceError{Provider: j.generator.Name(), Err: err}
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		j.logger.Warn("Unparseable generative response",
			zap.String("generator", j.generator.Name()),
			zap.Int("length", len(raw)),
			zap.Error(err))
		return &core.JudgeResult{Failure: &core.JudgeFailure{
			Kind:        core.FailureParse,
			Error:       ParseFailureMessage,
			RawResponse: raw,
		}}, nil
	}

	j.store(ctx, key, verdict)
	return &core.JudgeResult{Verdict: verdict}, nil
}

func (j *Judge) lookup(ctx context.Context, key string) *core.GenerativeVerdict {
	if j.cache == nil {
		return nil
	}
	entry, err := j.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			j.logger.Warn("Verdict cache lookup failed", zap.Error(err))
		}
		return nil
	}
	j.logger.Debug("Verdict cache hit", zap.String("key", key))
	v := entry.Verdict
	return &v
}

func (j *Judge) store(ctx context.Context, key string, verdict *core.GenerativeVerdict) {
	if j.cache == nil || j.opts.CacheTTL <= 0 {
		return
	}
	now := time.Now()
	err := j.cache.Set(ctx, &core.CacheEntry{
		Key:       key,
		Verdict:   *verdict,
		CreatedAt: now,
		ExpiresAt: now.Add(j.opts.CacheTTL),
	})
	if err != nil {
		j.logger.Warn("Failed to cache verdict", zap.Error(err))
	}
}

func cacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ParseVerdict extracts a verdict from a model reply. Code fences are stripped first;
// if the remainder is not a JSON object, the outermost {...} slice is tried.
func ParseVerdict(raw string) (*core.GenerativeVerdict, error) {
	cleaned := stripFences(raw)

	var reply struct {
		Prediction     string   `json:"prediction"`
		Reason         string   `json:"reason"`
		Recommendation string   `json:"recommendation"`
		SpamWords      []string `json:"spam_words"`
	}

	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, &core.GenerativeParseError{Raw: raw, Err: err}
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &reply); err != nil {
			return nil, &core.GenerativeParseError{Raw: raw, Err: err}
		}
	}

	label, ok := core.ParseLabel(reply.Prediction)
	if !ok {
		return nil, &core.GenerativeParseError{Raw: raw, Err: fmt.Errorf("unknown prediction %q", reply.Prediction)}
	}

	words := reply.SpamWords
	if words == nil {
		words = []string{}
	}

	return &core.GenerativeVerdict{
		Prediction:     label,
		Reason:         reply.Reason,
		Recommendation: reply.Recommendation,
		SpamWords:      words,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
