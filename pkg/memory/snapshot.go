package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	snapshotDefaultMaxRecords     = 100
	snapshotDefaultRetentionHours = 24
)

// Snapshot is the persisted layout of a Store. It carries no version field.
type Snapshot struct {
	Memories       []Record `json:"memories"`
	NextID         uint64   `json:"next_id"`
	MaxMemories    int      `json:"max_memories"`
	RetentionHours float64  `json:"retention_hours"`
}

// Snapshot captures the full store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record, len(s.records))
	for i, rec := range s.records {
		records[i] = rec.clone()
	}
	return Snapshot{
		Memories:       records,
		NextID:         s.nextID,
		MaxMemories:    s.maxRecords,
		RetentionHours: s.retention.Hours(),
	}
}

// Restore rebuilds a store from a snapshot. Records are loaded as-is; the
// cleanup pass only runs on the next Add. The id counter is advanced past any
// loaded id so restored ids are never handed out again.
func Restore(snap Snapshot, opts ...Option) *Store {
	retention := time.Duration(snap.RetentionHours * float64(time.Hour))
	s := NewStore(snap.MaxMemories, retention, opts...)
	s.nextID = snap.NextID
	if s.nextID == 0 {
		s.nextID = 1
	}
	s.records = make([]Record, 0, len(snap.Memories))
	for _, rec := range snap.Memories {
		rec = rec.clone()
		rec.Importance = clampImportance(rec.Importance)
		if n, ok := parseID(rec.ID); ok && n >= s.nextID {
			s.nextID = n + 1
		}
		s.records = append(s.records, rec)
	}
	return s
}

// MarshalJSON encodes the store in its snapshot layout.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON replaces the store state with a decoded snapshot. Missing
// fields fall back to next_id 1, max_memories 100 and retention_hours 24.
func (s *Store) UnmarshalJSON(data []byte) error {
	snap := Snapshot{
		NextID:         1,
		MaxMemories:    snapshotDefaultMaxRecords,
		RetentionHours: snapshotDefaultRetentionHours,
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("memory: decode snapshot: %w", err)
	}
	restored := Restore(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = restored.records
	s.nextID = restored.nextID
	s.maxRecords = restored.maxRecords
	s.retention = restored.retention
	if s.now == nil {
		s.now = time.Now
	}
	return nil
}

// SaveFile writes the store snapshot to path as indented JSON. The write goes
// through a temporary file and a rename.
func SaveFile(path string, s *Store) error {
	if s == nil {
		return errors.New("memory: store is nil")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("memory: snapshot path is required")
	}
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("memory: mkdir snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("memory: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("memory: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("memory: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("memory: replace snapshot: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot written by SaveFile.
func LoadFile(path string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read snapshot: %w", err)
	}
	s := NewStore(snapshotDefaultMaxRecords, snapshotDefaultRetentionHours*time.Hour, opts...)
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return s, nil
}

func parseID(id string) (uint64, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(id, idPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
