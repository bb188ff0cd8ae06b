package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

func newCSVStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.csv")
	return NewCSVStore(path, zap.NewNop()), path
}

func TestCSVStoreDeduplicates(t *testing.T) {
	store, path := newCSVStore(t)
	ctx := context.Background()

	spam := &core.GenerativeVerdict{Prediction: core.LabelSpam}
	id1, err := store.Append(ctx, sampleRecord("Win a prize, now!", core.LabelSpam, spam))
	require.NoError(t, err)
	id2, err := store.Append(ctx, sampleRecord("Win a prize, now!", core.LabelSpam, spam))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// a different category is a different row
	id3, err := store.Append(ctx, sampleRecord("Win a prize, now!", core.LabelSpam, nil))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "message,label,category", lines[0])
	assert.Equal(t, `"Win a prize, now!",spam,spam`, lines[1])
	assert.Equal(t, `"Win a prize, now!",spam,None`, lines[2])
}

func TestCSVStoreListAndProjection(t *testing.T) {
	store, _ := newCSVStore(t)
	ctx := context.Background()

	ham := &core.GenerativeVerdict{Prediction: core.LabelNotSpam}
	id, err := store.Append(ctx, sampleRecord("see you at 10", core.LabelSpam, ham))
	require.NoError(t, err)

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, LegacyType, records[0].Type)
	assert.Equal(t, "see you at 10", records[0].Content.Message)
	assert.Equal(t, core.LabelNotSpam, records[0].Label())

	rows, err := store.Projection(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.LabelSpam, rows[0].Label)
	assert.Equal(t, "not spam", rows[0].Category)
	assert.Nil(t, rows[0].Time)
}

func TestCSVStoreDeleteAndClear(t *testing.T) {
	store, path := newCSVStore(t)
	ctx := context.Background()

	a, err := store.Append(ctx, sampleRecord("a", core.LabelSpam, nil))
	require.NoError(t, err)
	_, err = store.Append(ctx, sampleRecord("b", core.LabelNotSpam, nil))
	require.NoError(t, err)

	remaining, err := store.DeleteMany(ctx, []string{a, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	require.NoError(t, store.Clear(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "message,label,category\n", string(data))

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVStoreCorruption(t *testing.T) {
	store, path := newCSVStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, []byte("text,spam\nfoo,bar\n"), 0o644))

	records, err := store.List(ctx)
	assert.Empty(t, records)
	assert.True(t, core.IsCorruption(err))

	_, err = store.Append(ctx, sampleRecord("fresh", core.LabelNotSpam, nil))
	require.NoError(t, err)

	records, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	backups, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestCSVStoreFailedAppendLeavesIDUnset(t *testing.T) {
	store, _ := newCSVStore(t)
	store.write = failingWrite

	rec := sampleRecord("x", core.LabelSpam, nil)
	_, err := store.Append(context.Background(), rec)
	require.Error(t, err)
	assert.Empty(t, rec.ID)
}

func TestCSVStoreMissingFile(t *testing.T) {
	store, path := newCSVStore(t)

	remaining, err := store.DeleteMany(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
