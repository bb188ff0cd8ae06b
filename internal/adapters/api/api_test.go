package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

type fakeService struct {
	results    []core.ItemResult
	emails     []core.FetchedEmail
	records    []core.HistoryRecord
	rows       []core.ProjectionRow
	err        error
	remaining  int
	gotType    string
	gotFilter  string
	gotIDs     []string
	clearCalls int
}

func (f *fakeService) Classify(_ context.Context, batchType string, _ []core.Message) ([]core.ItemResult, error) {
	f.gotType = batchType
	if batchType == "" {
		return nil, &core.ValidationError{Field: "type", Reason: "must not be empty"}
	}
	return f.results, f.err
}

func (f *fakeService) FetchEmails(_ context.Context, filter string) ([]core.FetchedEmail, error) {
	f.gotFilter = filter
	if _, err := core.ParseFetchWindow(filter); err != nil {
		return nil, err
	}
	return f.emails, f.err
}

func (f *fakeService) ListHistory(context.Context) ([]core.HistoryRecord, error) {
	return f.records, f.err
}

func (f *fakeService) DeleteHistory(_ context.Context, ids []string) (int, error) {
	f.gotIDs = ids
	return f.remaining, f.err
}

func (f *fakeService) ClearHistory(context.Context) error {
	f.clearCalls++
	return f.err
}

func (f *fakeService) ReportingProjection(context.Context) ([]core.ProjectionRow, error) {
	return f.rows, f.err
}

func serve(t *testing.T, svc Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(svc, "127.0.0.1:0", zap.NewNop())

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, HealthHandler()(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPredict(t *testing.T) {
	record := &core.HistoryRecord{
		ID:   "rec-1",
		Type: "manual",
		Result: core.RecordResult{
			Statistical: core.LabelSpam,
			Generative: core.JudgeResult{Verdict: &core.GenerativeVerdict{
				Prediction:     core.LabelSpam,
				Reason:         "prize bait",
				Recommendation: "Delete it",
				SpamWords:      []string{"prize"},
			}},
		},
	}

	tests := []struct {
		name           string
		body           string
		svc            *fakeService
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "returns one item per message",
			body: `{"type":"manual","emails":[{"content":"win a prize","sender":"a@b.c","subject":"hi"},{"content":""}]}`,
			svc: &fakeService{results: []core.ItemResult{
				{Sender: "a@b.c", Subject: "hi", Record: record},
				{Error: "content: must not be empty"},
			}},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var items []map[string]any
				require.NoError(t, json.Unmarshal(body, &items))
				require.Len(t, items, 2)

				assert.Equal(t, "rec-1", items[0]["id"])
				assert.Equal(t, "spam", items[0]["naive_output"])
				judged := items[0]["gemini_output"].(map[string]any)
				assert.Equal(t, "spam", judged["prediction"])
				assert.Equal(t, "Delete it", judged["recommendation"])
				assert.NotContains(t, items[0], "error")

				assert.Equal(t, "content: must not be empty", items[1]["error"])
				assert.NotContains(t, items[1], "id")
				assert.NotContains(t, items[1], "gemini_output")
			},
		},
		{
			name:           "degraded item keeps record and error",
			body:           `{"type":"manual","emails":[{"content":"hello"}]}`,
			svc:            &fakeService{results: []core.ItemResult{{Record: &core.HistoryRecord{ID: "rec-2", Result: core.RecordResult{Statistical: core.LabelNotSpam, Generative: core.JudgeResult{Failure: &core.JudgeFailure{Kind: core.FailureService, Error: "Generative service unavailable"}}}}, Error: "generation failed"}}},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var items []map[string]any
				require.NoError(t, json.Unmarshal(body, &items))
				require.Len(t, items, 1)
				assert.Equal(t, "rec-2", items[0]["id"])
				assert.Equal(t, "generation failed", items[0]["error"])
				judged := items[0]["gemini_output"].(map[string]any)
				assert.Equal(t, "Generative service unavailable", judged["error"])
			},
		},
		{
			name:           "missing type is a bad request",
			body:           `{"emails":[{"content":"x"}]}`,
			svc:            &fakeService{},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Contains(t, resp.Error, "type")
			},
		},
		{
			name:           "malformed json is a bad request",
			body:           `{"type":`,
			svc:            &fakeService{},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "invalid request body")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt.svc, http.MethodPost, "/predict", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			tt.checkResponse(t, rec.Body.Bytes())
		})
	}
}

func TestFetchEmails(t *testing.T) {
	date := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{emails: []core.FetchedEmail{{ID: "7", From: "x@y.z", Subject: "s", Date: date, Preview: "p"}}}

	rec := serve(t, svc, http.MethodPost, "/fetch-emails", `{"filter":"7d"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7d", svc.gotFilter)

	var resp FetchEmailsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Emails, 1)
	assert.Equal(t, "x@y.z", resp.Emails[0].From)

	rec = serve(t, svc, http.MethodPost, "/fetch-emails", `{"filter":"2w"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := &fakeService{err: errors.New("imap: login failed")}
	rec = serve(t, failing, http.MethodPost, "/fetch-emails", `{"filter":"1d"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"imap: login failed"}`, rec.Body.String())
}

func TestHistory(t *testing.T) {
	t.Run("lists records", func(t *testing.T) {
		svc := &fakeService{records: []core.HistoryRecord{{ID: "a", Type: "manual"}}}
		rec := serve(t, svc, http.MethodGet, "/history", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.History, 1)
		assert.Equal(t, "a", resp.History[0].ID)
		assert.Empty(t, resp.Warning)
	})

	t.Run("corrupt store is a warning", func(t *testing.T) {
		svc := &fakeService{err: &core.StoreCorruptionError{Path: "history.json", Err: errors.New("bad json")}}
		rec := serve(t, svc, http.MethodGet, "/history", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotNil(t, resp.History)
		assert.Empty(t, resp.History)
		assert.NotEmpty(t, resp.Warning)
		assert.Contains(t, rec.Body.String(), `"history":[]`)
	})

	t.Run("io failure is an error", func(t *testing.T) {
		svc := &fakeService{err: &core.StoreIOError{Op: "read", Path: "history.json", Err: errors.New("permission denied")}}
		rec := serve(t, svc, http.MethodGet, "/history", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDeleteAndClearHistory(t *testing.T) {
	svc := &fakeService{remaining: 3}
	rec := serve(t, svc, http.MethodPost, "/delete-history", `{"ids":["a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"remaining_records":3}`, rec.Body.String())
	assert.Equal(t, []string{"a", "b"}, svc.gotIDs)

	rec = serve(t, svc, http.MethodPost, "/clear-history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"History cleared successfully"}`, rec.Body.String())
	assert.Equal(t, 1, svc.clearCalls)

	failing := &fakeService{err: &core.StoreIOError{Op: "write", Path: "h.json", Err: errors.New("disk full")}}
	rec = serve(t, failing, http.MethodPost, "/clear-history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGraph(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &fakeService{rows: []core.ProjectionRow{
		{ID: "a", Label: core.LabelSpam, Category: "manual", Time: &ts},
		{ID: "b", Label: core.LabelNotSpam, Category: "None"},
	}}

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec := serve(t, svc, method, "/graph", "")
		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.JSONEq(t, `{"graphs":[
			{"id":"a","label":"spam","category":"manual","time":"2025-01-02T03:04:05Z"},
			{"id":"b","label":"not spam","category":"None"}
		]}`, rec.Body.String(), method)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
