package history

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// LegacyType is the batch type reported for records read back from the CSV store
const LegacyType = "legacy"

// noCategory is written when the judge produced no verdict
const noCategory = "None"

var csvHeader = []string{"message", "label", "category"}

type csvRow struct {
	message  string
	label    string
	category string
}

func (r csvRow) id() string {
	h := sha256.New()
	for _, f := range []string{r.message, r.label, r.category} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// CSVStore is the legacy three-column store. Identical rows are stored once, and a
// row's identifier is derived from its content.
type CSVStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
	write  func(path string, data []byte) error
}

// NewCSVStore creates a store backed by the CSV file at path
func NewCSVStore(path string, logger *zap.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: logger,
		write:  writeAtomic,
	}
}

func rowFromRecord(record *core.HistoryRecord) csvRow {
	category := noCategory
	if v := record.Result.Generative.Verdict; v != nil {
		category = string(v.Prediction)
	}
	return csvRow{
		message:  record.Content.Message,
		label:    string(record.Result.Statistical),
		category: category,
	}
}

func (r csvRow) record() core.HistoryRecord {
	rec := core.HistoryRecord{
		ID:      r.id(),
		Type:    LegacyType,
		Content: core.RecordContent{Message: r.message},
		Result:  core.RecordResult{Statistical: core.Label(r.label)},
	}
	if label, ok := core.ParseLabel(r.category); ok {
		rec.Result.Generative = core.JudgeResult{Verdict: &core.GenerativeVerdict{Prediction: label, SpamWords: []string{}}}
	}
	return rec
}

func (s *CSVStore) load() ([]csvRow, bool, error) {
	data, exists, err := readDocument(s.path)
	if err != nil || !exists {
		return nil, exists, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = len(csvHeader)
	lines, err := reader.ReadAll()
	if err != nil {
		return nil, true, &core.StoreCorruptionError{Path: s.path, Err: err}
	}
	if len(lines) == 0 {
		return nil, true, nil
	}
	if lines[0][0] != csvHeader[0] || lines[0][1] != csvHeader[1] || lines[0][2] != csvHeader[2] {
		return nil, true, &core.StoreCorruptionError{Path: s.path, Err: errors.New("unexpected header")}
	}

	rows := make([]csvRow, 0, len(lines)-1)
	for _, l := range lines[1:] {
		rows = append(rows, csvRow{message: l[0], label: l[1], category: l[2]})
	}
	return rows, true, nil
}

func (s *CSVStore) loadForWrite() ([]csvRow, bool, error) {
	rows, exists, err := s.load()
	if core.IsCorruption(err) {
		backup, moveErr := preserveCorrupt(s.path)
		if moveErr != nil {
			return nil, exists, moveErr
		}
		s.logger.Warn("History store is corrupt, starting a new one",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(err))
		return nil, exists, nil
	}
	return rows, exists, err
}

func (s *CSVStore) save(rows []csvRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return &core.StoreIOError{Op: "encode", Path: s.path, Err: err}
	}
	for _, r := range rows {
		if err := w.Write([]string{r.message, r.label, r.category}); err != nil {
			return &core.StoreIOError{Op: "encode", Path: s.path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &core.StoreIOError{Op: "encode", Path: s.path, Err: err}
	}
	return s.write(s.path, buf.Bytes())
}

// Append stores the record unless an identical row already exists.
// Either way the returned id identifies the stored row.
func (s *CSVStore) Append(_ context.Context, record *core.HistoryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.loadForWrite()
	if err != nil {
		return "", err
	}

	row := rowFromRecord(record)
	id := row.id()
	for _, existing := range rows {
		if existing == row {
			s.logger.Debug("Duplicate history row skipped", zap.String("id", id))
			record.ID = id
			return id, nil
		}
	}

	if err := s.save(append(rows, row)); err != nil {
		return "", err
	}
	record.ID = id
	return id, nil
}

// List returns the stored rows as records. Sender, subject and timestamps are not
// kept by this format.
func (s *CSVStore) List(_ context.Context) ([]core.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.load()
	records := make([]core.HistoryRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, err
}

// DeleteMany removes the rows whose id is in ids and returns how many remain
func (s *CSVStore) DeleteMany(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, exists, err := s.loadForWrite()
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]csvRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := drop[r.id()]; !ok {
			kept = append(kept, r)
		}
	}

	if err := s.save(kept); err != nil {
		return 0, fmt.Errorf("delete history rows: %w", err)
	}
	return len(kept), nil
}

// Clear leaves only the header row
func (s *CSVStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

// Projection returns the label and category columns of every row
func (s *CSVStore) Projection(_ context.Context) ([]core.ProjectionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.load()
	out := make([]core.ProjectionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ProjectionRow{
			ID:       r.id(),
			Label:    core.Label(r.label),
			Category: r.category,
		})
	}
	return out, err
}
