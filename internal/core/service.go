package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const notifyTimeout = 15 * time.Second

// ClassificationService runs both classifiers on each message and records the outcome
type ClassificationService struct {
	normalizer  Normalizer
	statistical Classifier[Label]
	judge       Classifier[*JudgeResult]
	store       HistoryStore
	fetcher     MailFetcher
	notifier    Notifier
	trusted     TrustedSenders
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
	pending     sync.WaitGroup
}

// NewClassificationService creates a new classification service.
// fetcher, notifier and trusted may be nil.
func NewClassificationService(
	normalizer Normalizer,
	statistical Classifier[Label],
	judge Classifier[*JudgeResult],
	store HistoryStore,
	fetcher MailFetcher,
	notifier Notifier,
	trusted TrustedSenders,
	logger *zap.Logger,
	concurrency int,
) *ClassificationService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ClassificationService{
		normalizer:  normalizer,
		statistical: statistical,
		judge:       judge,
		store:       store,
		fetcher:     fetcher,
		notifier:    notifier,
		trusted:     trusted,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Classify classifies and records every message of a batch. Each message is handled
// independently: a failed item carries its error and never affects its siblings.
// Results are returned in input order.
func (s *ClassificationService) Classify(ctx context.Context, batchType string, messages []Message) ([]ItemResult, error) {
	if strings.TrimSpace(batchType) == "" {
		return nil, &ValidationError{Field: "type", Reason: "must not be empty"}
	}

	results := make([]ItemResult, len(messages))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			results[i] = s.classifyItem(ctx, msg, batchType)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *ClassificationService) classifyItem(ctx context.Context, msg Message, batchType string) ItemResult {
	item := ItemResult{Sender: msg.Sender, Subject: msg.Subject}

	record, err := s.ClassifyAndRecord(ctx, msg, batchType)
	item.Record = record
	if err != nil {
		item.Error = err.Error()
		s.logger.Warn("Batch item failed",
			zap.String("type", batchType),
			zap.String("sender", msg.Sender),
			zap.Bool("recorded", record != nil),
			zap.Error(err))
	}
	return item
}

// ClassifyAndRecord classifies one message with both classifiers and persists the result.
//
// When the generation service fails the record is still built and persisted with a
// degraded generative verdict; in that case both the record and the
// *GenerativeServiceError are returned.
func (s *ClassificationService) ClassifyAndRecord(ctx context.Context, msg Message, batchType string) (*HistoryRecord, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(batchType) == "" {
		return nil, &ValidationError{Field: "type", Reason: "must not be empty"}
	}

	normalized := s.normalizer.Normalize(msg.Content)

	// The judge works on the raw content and blocks on the network, so it runs
	// alongside the statistical model.
	var (
		judged   *JudgeResult
		judgeErr error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		judged, judgeErr = s.judge.Classify(ctx, msg.Content)
	}()

	label, statErr := s.statistical.Classify(ctx, normalized)
	wg.Wait()

	if statErr != nil {
		return nil, fmt.Errorf("statistical classification failed: %w", statErr)
	}

	generative, serviceErr := s.resolveJudgement(judged, judgeErr)

	record := &HistoryRecord{
		Type: batchType,
		Content: RecordContent{
			From:    msg.Sender,
			Subject: msg.Subject,
			Message: msg.Content,
		},
		Result: RecordResult{
			Statistical: label,
			Generative:  generative,
		},
		Timestamp: s.now(),
	}

	id, err := s.store.Append(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id

	s.logger.Info("Message classified",
		zap.String("id", id),
		zap.String("type", batchType),
		zap.String("sender", msg.Sender),
		zap.String("statistical", string(label)),
		zap.String("label", string(record.Label())),
		zap.Bool("agreement", record.Agreement()),
		zap.Bool("unparseable", generative.Unparseable()))

	s.notify(record)

	if serviceErr != nil {
		return record, serviceErr
	}
	return record, nil
}

// resolveJudgement turns a judge error into a degraded verdict
func (s *ClassificationService) resolveJudgement(judged *JudgeResult, err error) (JudgeResult, error) {
	if err == nil && judged != nil {
		return *judged, nil
	}
	if err == nil {
		err = errors.New("judge returned no result")
	}

	var serviceErr *GenerativeServiceError
	if !errors.As(err, &serviceErr) {
		serviceErr = &GenerativeServiceError{Provider: "unknown", Err: err}
	}

	return JudgeResult{
		Failure: &JudgeFailure{
			Kind:  FailureService,
			Error: "Generative service unavailable",
			Cause: err.Error(),
		},
	}, serviceErr
}

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

// notify sends the notification in the background; failures are only logged
func (s *ClassificationService) notify(record *HistoryRecord) {
	if s.notifier == nil {
		return
	}
	if s.trusted != nil && s.trusted.IsWhitelisted(record.Content.From) {
		s.logger.Debug("Skipping notification for trusted sender",
			zap.String("sender", record.Content.From))
		return
	}

	text := FormatNotification(record)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Error("Failed to send notification",
				zap.String("id", record.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight notifications have finished
func (s *ClassificationService) Wait() {
	s.pending.Wait()
}

// FormatNotification renders the notification text for a record
func FormatNotification(record *HistoryRecord) string {
	if record.IsSpam() {
		suggestion := "Review this message before acting on it"
		if v := record.Result.Generative.Verdict; v != nil && v.Recommendation != "" {
			suggestion = v.Recommendation
		}
		return fmt.Sprintf("%s\n🚨 Spam Detected!\nSuggestion: %s", record.Content.Message, suggestion)
	}
	return fmt.Sprintf("%s\n✅ Not Spam", record.Content.Message)
}

// ListHistory returns every record. A *StoreCorruptionError comes back together with
// an empty list and should be reported as a warning.
func (s *ClassificationService) ListHistory(ctx context.Context) ([]HistoryRecord, error) {
	return s.store.List(ctx)
}

// DeleteHistory removes the given records and returns how many remain
func (s *ClassificationService) DeleteHistory(ctx context.Context, ids []string) (int, error) {
	remaining, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Info("History records deleted",
		zap.Int("requested", len(ids)),
		zap.Int("remaining", remaining))
	return remaining, nil
}

// ClearHistory removes all records
func (s *ClassificationService) ClearHistory(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("History cleared")
	return nil
}

// ReportingProjection returns the chart data for all records
func (s *ClassificationService) ReportingProjection(ctx context.Context) ([]ProjectionRow, error) {
	return s.store.Projection(ctx)
}

// FetchEmails retrieves recent mail for the given lookback filter
func (s *ClassificationService) FetchEmails(ctx context.Context, filter string) ([]FetchedEmail, error) {
	window, err := ParseFetchWindow(filter)
	if err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, errors.New("mail retrieval is not configured")
	}
	return s.fetcher.Fetch(ctx, window)
}
