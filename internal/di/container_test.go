package di

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mail-clarity/internal/adapters/api"
	"github.com/mikey/mail-clarity/internal/core"
)

const artifactJSON = `{
  "format_version": 1,
  "vectorizer": {"kind": "count", "vocabulary": {"prize": 0, "lunch": 1}},
  "classifier": {"kind": "logistic_regression", "classes": [0, 1], "coef": [[2.0, -2.0]], "intercept": [0.0]}
}`

const chatReply = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",` +
	`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant",` +
	`"content":"{\"prediction\":\"spam\",\"reason\":\"prize bait\",\"recommendation\":\"Delete it\",\"spam_words\":[\"prize\"]}"}}]}`

// fixture writes a model artifact and serves canned chat completions
func fixture(t *testing.T) (dir, baseURL string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.json"), []byte(artifactJSON), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("MAIL_CLARITY_ENV_FILE", filepath.Join(dir, ".env"))
	t.Setenv("MAIL_CLARITY_OPENAI_BASE_URL", srv.URL+"/v1")
	return dir, srv.URL + "/v1"
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"-provider", "openai", "-file", "mail.eml", "-verbose"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "openai", flags.Provider)
	assert.Equal(t, "mail.eml", flags.InputFile)
	assert.True(t, flags.Verbose)
	assert.Equal(t, "json", flags.HistoryFormat)

	_, err = ParseFlags([]string{"-no-such-flag"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestCreateConfigFromFlags(t *testing.T) {
	t.Setenv("MAIL_CLARITY_ENV_FILE", filepath.Join(t.TempDir(), ".env"))
	cfg := createConfigFromFlags(&CLIFlags{
		Provider:      "gemini",
		GeminiAPIKey:  "g-key",
		HistoryFormat: "csv",
		HistoryPath:   "/tmp/h.csv",
		ArtifactPath:  "/tmp/model.json",
	})

	assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
	assert.Equal(t, "g-key", cfg.GetGemini().APIKey)
	assert.Equal(t, "/tmp/h.csv", cfg.GetHistory().CSVPath)
	assert.Equal(t, "/tmp/model.json", cfg.GetModel().ArtifactPath)
	assert.False(t, cfg.GetBool("cache.enabled"))
}

func TestBuildCLIContainer(t *testing.T) {
	dir, _ := fixture(t)
	historyPath := filepath.Join(dir, "history.json")

	container, err := BuildCLIContainer(&CLIFlags{
		Provider:      "openai",
		OpenAIAPIKey:  "sk-test",
		ArtifactPath:  filepath.Join(dir, "model.json"),
		HistoryFormat: "json",
		HistoryPath:   historyPath,
	})
	require.NoError(t, err)

	raw := "From: promo@prizes.example\r\nSubject: Winner\r\n\r\nClaim your prize\r\n"
	err = container.Invoke(func(filter core.MailFilter, svc *core.ClassificationService) error {
		record, err := filter.ProcessEmail(context.Background(), strings.NewReader(raw))
		if err != nil {
			return err
		}
		assert.Equal(t, "cli", record.Type)
		assert.Equal(t, core.LabelSpam, record.Result.Statistical)
		require.NotNil(t, record.Result.Generative.Verdict)
		assert.Equal(t, "prize bait", record.Result.Generative.Verdict.Reason)

		history, err := svc.ListHistory(context.Background())
		require.NoError(t, err)
		assert.Len(t, history, 1)
		return nil
	})
	require.NoError(t, err)
	assert.FileExists(t, historyPath)
}

func TestBuildContainer(t *testing.T) {
	dir, _ := fixture(t)
	t.Setenv("MAIL_CLARITY_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAIL_CLARITY_MODEL_ARTIFACT_PATH", filepath.Join(dir, "model.json"))
	t.Setenv("MAIL_CLARITY_HISTORY_PATH", filepath.Join(dir, "history.json"))
	t.Setenv("MAIL_CLARITY_CACHE_CLEANUP_FREQUENCY", "0s")
	t.Setenv("MAIL_CLARITY_MAIL_USERNAME", "")
	t.Setenv("IMAP_USERNAME", "")
	t.Setenv("MAIL_CLARITY_NOTIFY_PROVIDER", "none")
	t.Setenv("MAIL_CLARITY_SERVER_FILTER_TYPE", "none")

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(server *api.Server, filter core.MailFilter) {
		assert.Nil(t, filter)

		body := `{"type":"manual","emails":[{"content":"Lunch tomorrow?"},{"content":"win a prize"}]}`
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var items []api.PredictItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		require.Len(t, items, 2)
		assert.Equal(t, core.LabelNotSpam, items[0].NaiveOutput)
		assert.Equal(t, core.LabelSpam, items[1].NaiveOutput)
		assert.NotEmpty(t, items[1].ID)

		req = httptest.NewRequest(http.MethodPost, "/fetch-emails", strings.NewReader(`{"filter":"1d"}`))
		req.Header.Set("Content-Type", "application/json")
		rec = httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
	require.NoError(t, err)
}
