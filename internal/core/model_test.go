package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in    string
		want  Label
		valid bool
	}{
		{"spam", LabelSpam, true},
		{" SPAM ", LabelSpam, true},
		{"Not Spam", LabelNotSpam, true},
		{"ham", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		assert.Equal(t, tt.valid, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestJudgeResultVariants(t *testing.T) {
	verdict, err := json.Marshal(JudgeResult{Verdict: &GenerativeVerdict{Prediction: LabelSpam}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":"spam","reason":"","recommendation":"","spam_words":[]}`, string(verdict))

	var decoded JudgeResult
	require.NoError(t, json.Unmarshal([]byte(`{"error":"Failed to parse generative response","kind":"parse","raw_response":"nope"}`), &decoded))
	require.NotNil(t, decoded.Failure)
	assert.Nil(t, decoded.Verdict)
	assert.True(t, decoded.Unparseable())
	assert.Equal(t, "nope", decoded.Failure.RawResponse)

	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.Nil(t, decoded.Verdict)
	assert.Nil(t, decoded.Failure)
}

func TestHistoryRecordLabel(t *testing.T) {
	rec := HistoryRecord{
		ID:        "a",
		Timestamp: time.Now(),
		Result: RecordResult{
			Statistical: LabelSpam,
			Generative:  JudgeResult{Verdict: &GenerativeVerdict{Prediction: LabelNotSpam}},
		},
	}
	assert.Equal(t, LabelNotSpam, rec.Label())
	assert.False(t, rec.IsSpam())
	assert.False(t, rec.Agreement())

	rec.Result.Generative = JudgeResult{}
	assert.Equal(t, LabelSpam, rec.Label())
	assert.False(t, rec.Agreement())
}

func TestParseFetchWindow(t *testing.T) {
	w, err := ParseFetchWindow("15d")
	require.NoError(t, err)
	assert.Equal(t, 15*24*time.Hour, w.Duration())

	_, err = ParseFetchWindow("1w")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-04-01T10:11:12.123456")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 4, 1, 10, 11, 12, 123456000, time.Local)))

	ts, err = ParseTimestamp("2025-04-02T08:00:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 4, 2, 8, 0, 0, 0, time.Local)))

	ts, err = ParseTimestamp("2025-04-01T10:11:12.5Z")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 4, 1, 10, 11, 12, 500000000, time.UTC)))

	ts, err = ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseTimestamp("yesterday")
	assert.ErrorContains(t, err, `invalid timestamp "yesterday"`)
}

func TestRecordResultKeys(t *testing.T) {
	var current RecordResult
	require.NoError(t, json.Unmarshal([]byte(`{"model_prediction":"spam","gemini_prediction":{"prediction":"spam","reason":"r","recommendation":"d","spam_words":["win"]}}`), &current))
	assert.Equal(t, LabelSpam, current.Statistical)
	require.NotNil(t, current.Generative.Verdict)
	assert.Equal(t, []string{"win"}, current.Generative.Verdict.SpamWords)

	var legacy RecordResult
	require.NoError(t, json.Unmarshal([]byte(`{"model_prediction":"not spam","llm_prediction":{"error":"Could not parse","raw_response":"ok"}}`), &legacy))
	require.NotNil(t, legacy.Generative.Failure)
	assert.Equal(t, FailureParse, legacy.Generative.Failure.Kind)
	assert.True(t, legacy.Generative.Unparseable())

	data, err := json.Marshal(current)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gemini_prediction"`)
	assert.NotContains(t, string(data), `"llm_prediction"`)
}
