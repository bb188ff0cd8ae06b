package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Label is a binary spam classification
type Label string

const (
	LabelSpam    Label = "spam"
	LabelNotSpam Label = "not spam"
)

// ParseLabel accepts the labels in any case and surrounding whitespace
func ParseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(LabelSpam):
		return LabelSpam, true
	case string(LabelNotSpam):
		return LabelNotSpam, true
	default:
		return "", false
	}
}

// Message is one item submitted for classification
type Message struct {
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// GenerativeVerdict is the structured answer of the generative judge
type GenerativeVerdict struct {
	Prediction     Label    `json:"prediction"`
	Reason         string   `json:"reason"`
	Recommendation string   `json:"recommendation"`
	SpamWords      []string `json:"spam_words"`
}

// Judge failure kinds
const (
	FailureParse   = "parse"
	FailureService = "service"
)

// JudgeFailure is stored in place of a verdict when the judge could not produce one
type JudgeFailure struct {
	Kind        string `json:"kind"`
	Error       string `json:"error"`
	RawResponse string `json:"raw_response,omitempty"`
	Cause       string `json:"cause,omitempty"`
}

// JudgeResult holds either a verdict or a failure payload, never both
type JudgeResult struct {
	Verdict *GenerativeVerdict
	Failure *JudgeFailure
}

// Unparseable reports whether the judge answered but the answer could not be parsed
func (r *JudgeResult) Unparseable() bool {
	return r != nil && r.Failure != nil && r.Failure.Kind == FailureParse
}

// MarshalJSON flattens the result to whichever variant is set
func (r JudgeResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Verdict != nil:
		v := *r.Verdict
		if v.SpamWords == nil {
			v.SpamWords = []string{}
		}
		return json.Marshal(v)
	case r.Failure != nil:
		return json.Marshal(r.Failure)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON detects the variant by the presence of an "error" key
func (r *JudgeResult) UnmarshalJSON(data []byte) error {
	*r = JudgeResult{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, ok := keys["error"]; ok {
		var f JudgeFailure
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		// older histories only ever stored parse failures, without a kind
		if f.Kind == "" {
			f.Kind = FailureParse
		}
		r.Failure = &f
		return nil
	}

	var v GenerativeVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Verdict = &v
	return nil
}

// RecordContent is the classified message as persisted
type RecordContent struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// RecordResult holds both classifier outputs side by side
type RecordResult struct {
	Statistical Label       `json:"model_prediction"`
	Generative  JudgeResult `json:"gemini_prediction"`
}

// UnmarshalJSON also accepts the generative result under "llm_prediction"
func (r *RecordResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Statistical Label           `json:"model_prediction"`
		Generative  json.RawMessage `json:"gemini_prediction"`
		LLM         json.RawMessage `json:"llm_prediction"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = RecordResult{Statistical: aux.Statistical}
	raw := aux.Generative
	if len(raw) == 0 {
		raw = aux.LLM
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &r.Generative)
}

// HistoryRecord is one persisted classification event
type HistoryRecord struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Content   RecordContent `json:"content"`
	Result    RecordResult  `json:"result"`
	Timestamp time.Time     `json:"timestamp"`
}

// localTimestamp is an ISO 8601 timestamp without zone, read as local time.
// Parsing accepts an optional fractional second after the seconds field.
const localTimestamp = "2006-01-02T15:04:05"

// UnmarshalJSON accepts RFC 3339 timestamps and zone-less ISO 8601 ones
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	type plain HistoryRecord
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	return nil
}

// ParseTimestamp parses a stored timestamp. The empty string is the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(localTimestamp, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts, nil
}

// Label returns the reconciled label: the judge's prediction when it produced a verdict,
// the statistical label otherwise
func (r *HistoryRecord) Label() Label {
	if r.Result.Generative.Verdict != nil {
		return r.Result.Generative.Verdict.Prediction
	}
	return r.Result.Statistical
}

// IsSpam reports whether the reconciled label is spam
func (r *HistoryRecord) IsSpam() bool {
	return r.Label() == LabelSpam
}

// Agreement reports whether both classifiers produced the same label.
// Without a generative verdict there is nothing to agree with.
func (r *HistoryRecord) Agreement() bool {
	v := r.Result.Generative.Verdict
	return v != nil && v.Prediction == r.Result.Statistical
}

// ProjectionRow is the reporting view of a record, without message content
type ProjectionRow struct {
	ID       string     `json:"id"`
	Label    Label      `json:"label"`
	Category string     `json:"category"`
	Time     *time.Time `json:"time,omitempty"`
}

// ItemResult is the outcome for one message of a batch
type ItemResult struct {
	Sender  string         `json:"sender"`
	Subject string         `json:"subject"`
	Record  *HistoryRecord `json:"record,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// FetchedEmail is a message returned by the mail retrieval collaborator
type FetchedEmail struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Preview string    `json:"preview"`
}

// FetchWindow is a mail retrieval lookback window
type FetchWindow string

const (
	WindowDay       FetchWindow = "1d"
	WindowWeek      FetchWindow = "7d"
	WindowFortnight FetchWindow = "15d"
	WindowMonth     FetchWindow = "30d"
)

// ParseFetchWindow validates a lookback filter
func ParseFetchWindow(s string) (FetchWindow, error) {
	switch w := FetchWindow(strings.TrimSpace(s)); w {
	case WindowDay, WindowWeek, WindowFortnight, WindowMonth:
		return w, nil
	default:
		return "", &ValidationError{Field: "filter", Reason: "must be one of 1d, 7d, 15d, 30d"}
	}
}

// Duration returns the lookback length
func (w FetchWindow) Duration() time.Duration {
	day := 24 * time.Hour
	switch w {
	case WindowDay:
		return day
	case WindowWeek:
		return 7 * day
	case WindowFortnight:
		return 15 * day
	default:
		return 30 * day
	}
}

// CacheEntry is a cached judge verdict
type CacheEntry struct {
	Key       string
	Verdict   GenerativeVerdict
	CreatedAt time.Time
	ExpiresAt time.Time
}
