package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/history"
	"github.com/mikey/mail-clarity/internal/config"
	"github.com/mikey/mail-clarity/internal/core"
	"github.com/mikey/mail-clarity/internal/utils"
)

func newConfig(t *testing.T, values map[string]any) *config.Config {
	t.Helper()
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

type nopGenerator struct{}

func (nopGenerator) Generate(_ context.Context, _ string) (string, error) { return "", nil }
func (nopGenerator) Name() string                                       { return "nop" }

func TestLLMFactory(t *testing.T) {
	logger := zap.NewNop()

	_, err := NewLLMFactory(newConfig(t, map[string]any{"llm.provider": "cohere"}), logger).CreateGenerator()
	assert.ErrorContains(t, err, "unsupported LLM provider")

	_, err = NewLLMFactory(newConfig(t, map[string]any{"llm.provider": "openai", "openai.api_key": ""}), logger).CreateGenerator()
	assert.ErrorContains(t, err, "openai API key is required")

	_, err = NewLLMFactory(newConfig(t, map[string]any{"llm.provider": "gemini", "gemini.api_key": ""}), logger).CreateGenerator()
	assert.Error(t, err)

	gen, err := NewLLMFactory(newConfig(t, map[string]any{"llm.provider": "openai", "openai.api_key": "sk-test"}), logger).CreateGenerator()
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", gen.Name())
}

func TestCacheFactory(t *testing.T) {
	logger := zap.NewNop()

	c, err := NewCacheFactory(newConfig(t, map[string]any{"cache.enabled": false}), logger).CreateVerdictCache()
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCacheFactory(newConfig(t, map[string]any{"cache.type": "memory", "cache.cleanup_frequency": "0s"}), logger).CreateVerdictCache()
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewCacheFactory(newConfig(t, map[string]any{"cache.type": "memcached"}), logger).CreateVerdictCache()
	assert.ErrorContains(t, err, "unsupported cache type")
}

func TestClassifierFactory(t *testing.T) {
	logger := zap.NewNop()
	f := NewClassifierFactory(newConfig(t, map[string]any{"model.artifact_path": filepath.Join(t.TempDir(), "missing.json")}), logger)

	_, err := f.CreateStatistical()
	var loadErr *core.ArtifactLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.ErrorContains(t, err, "spam-train -data")

	j, err := f.CreateJudge(nopGenerator{}, nil, utils.NewTextProcessor(logger))
	require.NoError(t, err)
	assert.NotNil(t, j)
}

func TestStoreFactory(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	store, err := NewStoreFactory(newConfig(t, map[string]any{"history.path": filepath.Join(dir, "h.json")}), logger).CreateHistoryStore()
	require.NoError(t, err)
	assert.IsType(t, &history.JSONStore{}, store)

	store, err = NewStoreFactory(newConfig(t, map[string]any{"history.format": "csv", "history.csv_path": filepath.Join(dir, "h.csv")}), logger).CreateHistoryStore()
	require.NoError(t, err)
	assert.IsType(t, &history.CSVStore{}, store)

	_, err = NewStoreFactory(newConfig(t, map[string]any{"history.format": "xml"}), logger).CreateHistoryStore()
	assert.Error(t, err)
}

func TestCollaboratorFactory(t *testing.T) {
	logger := zap.NewNop()

	f := NewCollaboratorFactory(newConfig(t, nil), logger)
	assert.Nil(t, f.CreateMailFetcher())
	n, err := f.CreateNotifier()
	require.NoError(t, err)
	assert.Nil(t, n)

	f = NewCollaboratorFactory(newConfig(t, map[string]any{"mail.username": "me@example.com"}), logger)
	assert.NotNil(t, f.CreateMailFetcher())

	_, err = NewCollaboratorFactory(newConfig(t, map[string]any{"notify.provider": "pager"}), logger).CreateNotifier()
	assert.ErrorContains(t, err, "unsupported notification provider")

	_, err = NewCollaboratorFactory(newConfig(t, map[string]any{"notify.provider": "telegram"}), logger).CreateNotifier()
	assert.ErrorContains(t, err, "chat id")

	n, err = NewCollaboratorFactory(newConfig(t, map[string]any{
		"notify.provider":         "sendgrid",
		"notify.sendgrid.api_key": "SG.key",
		"notify.sendgrid.from":    "alerts@example.com",
		"notify.sendgrid.to":      "me@example.com",
	}), logger).CreateNotifier()
	require.NoError(t, err)
	assert.NotNil(t, n)

	trusted := NewCollaboratorFactory(newConfig(t, map[string]any{"notify.trusted_domains": []string{"example.com"}}), logger).CreateTrustedSenders()
	assert.True(t, trusted.IsWhitelisted("boss@mail.example.com"))
}

func TestFilterFactory(t *testing.T) {
	logger := zap.NewNop()

	filter, err := NewFilterFactory(newConfig(t, nil), logger, nil).CreateEmailFilter()
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = NewFilterFactory(newConfig(t, map[string]any{"server.filter_type": "postfix"}), logger, nil).CreateEmailFilter()
	require.NoError(t, err)
	assert.NotNil(t, filter)

	_, err = NewFilterFactory(newConfig(t, map[string]any{"server.filter_type": "milter"}), logger, nil).CreateEmailFilter()
	assert.ErrorContains(t, err, "unsupported filter type")
}
