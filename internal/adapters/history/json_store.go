package history

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// JSONStore keeps every record, in insertion order, in a JSON array
type JSONStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
	write  func(path string, data []byte) error
	newID  func() string
}

// NewJSONStore creates a store backed by the file at path. The file and its
// directory are created on the first write.
func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	return &JSONStore{
		path:   path,
		logger: logger,
		write:  writeAtomic,
		newID:  uuid.NewString,
	}
}

// load reads all records. A corrupt file yields no records and a *core.StoreCorruptionError.
func (s *JSONStore) load() ([]core.HistoryRecord, bool, error) {
	data, exists, err := readDocument(s.path)
	if err != nil || !exists {
		return nil, exists, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, true, nil
	}

	var records []core.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, true, &core.StoreCorruptionError{Path: s.path, Err: err}
	}
	return records, true, nil
}

// loadForWrite is load for mutations: a corrupt file is moved aside and the store starts over
func (s *JSONStore) loadForWrite() ([]core.HistoryRecord, bool, error) {
	records, exists, err := s.load()
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
	return records, exists, err
}

func (s *JSONStore) save(records []core.HistoryRecord) error {
	if records == nil {
		records = []core.HistoryRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &core.StoreIOError{Op: "encode", Path: s.path, Err: err}
	}
	return s.write(s.path, data)
}

// Append persists record under a fresh identifier, which is set on record once
// the write succeeded
func (s *JSONStore) Append(_ context.Context, record *core.HistoryRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.loadForWrite()
	if err != nil {
		return "", err
	}

	stored := *record
	stored.ID = s.newID()
	if err := s.save(append(records, stored)); err != nil {
		return "", err
	}
	record.ID = stored.ID
	return stored.ID, nil
}

// List returns all records in insertion order
func (s *JSONStore) List(_ context.Context) ([]core.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.load()
	if records == nil {
		records = []core.HistoryRecord{}
	}
	return records, err
}

// DeleteMany removes the records whose id is in ids and returns how many remain.
// Unknown ids are ignored.
func (s *JSONStore) DeleteMany(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, exists, err := s.loadForWrite()
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

	kept := make([]core.HistoryRecord, 0, len(records))
	for _, r := range records {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}

	if err := s.save(kept); err != nil {
		return 0, err
	}
	s.logger.Debug("History records removed",
		zap.Int("removed", len(records)-len(kept)),
		zap.Int("remaining", len(kept)))
	return len(kept), nil
}

// Clear empties the store
func (s *JSONStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

// Projection returns the reporting view of every record
func (s *JSONStore) Projection(_ context.Context) ([]core.ProjectionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.load()
	rows := make([]core.ProjectionRow, 0, len(records))
	for i := range records {
		ts := records[i].Timestamp
		rows = append(rows, core.ProjectionRow{
			ID:       records[i].ID,
			Label:    records[i].Label(),
			Category: records[i].Type,
			Time:     &ts,
		})
	}
	return rows, err
}
