package memory

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxRecords and DefaultRetention are the pipeline defaults.
	DefaultMaxRecords = 50
	DefaultRetention  = 12 * time.Hour

	defaultQueryLimit = 10
	idPrefix          = "mem_"
)

// Store is a bounded, time-retained short-term memory. Retention is enforced
// lazily: expired records are only dropped by the cleanup pass that follows
// every Add. After any mutating call Len() never exceeds the configured
// capacity.
//
// A single mutex guards every public operation.
type Store struct {
	mu         sync.Mutex
	records    []Record
	nextID     uint64
	maxRecords int
	retention  time.Duration
	now        func() time.Time
}

// Option customises a Store at construction time.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store. A capacity of zero is accepted and makes
// every added record evict itself immediately.
func NewStore(maxRecords int, retention time.Duration, opts ...Option) *Store {
	if maxRecords < 0 {
		maxRecords = 0
	}
	s := &Store{
		nextID:     1,
		maxRecords: maxRecords,
		retention:  retention,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultStore returns a store sized for the recommendation pipeline.
func DefaultStore(opts ...Option) *Store {
	return NewStore(DefaultMaxRecords, DefaultRetention, opts...)
}

// MaxRecords returns the configured capacity.
func (s *Store) MaxRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRecords
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retention
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// AddOption customises a record created by Add.
type AddOption func(*Record)

// WithImportance sets the record importance; out-of-range values are clamped.
func WithImportance(v float64) AddOption {
	return func(r *Record) { r.Importance = v }
}

// WithTags attaches tags in the given order. Duplicates are kept.
func WithTags(tags ...string) AddOption {
	return func(r *Record) { r.Tags = append(r.Tags, tags...) }
}

// WithMetadata attaches opaque metadata. The map is copied.
func WithMetadata(meta map[string]any) AddOption {
	return func(r *Record) {
		for k, v := range meta {
			r.Metadata[k] = v
		}
	}
}

// Add stores a new record and returns its id. The retention sweep and the
// capacity eviction run afterwards and may remove other records, or the new
// one in degenerate configurations.
func (s *Store) Add(content string, kind Kind, opts ...AddOption) string {
	rec := Record{
		Content:    content,
		Kind:       kind,
		Importance: DefaultImportance,
		Tags:       []string{},
		Metadata:   map[string]any{},
	}
	for _, opt := range opts {
		opt(&rec)
	}
	rec.Importance = clampImportance(rec.Importance)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = idPrefix + strconv.FormatUint(s.nextID, 10)
	s.nextID++
	rec.CreatedAt = s.now()
	s.records = append(s.records, rec)
	s.cleanup()
	return rec.ID
}

// AddConversation stores a conversation record with importance 2.0.
func (s *Store) AddConversation(content string, opts ...AddOption) string {
	return s.Add(content, KindConversation, append([]AddOption{WithImportance(2.0)}, opts...)...)
}

// AddObservation stores an observation record with importance 1.5.
func (s *Store) AddObservation(content string, opts ...AddOption) string {
	return s.Add(content, KindObservation, append([]AddOption{WithImportance(1.5)}, opts...)...)
}

// AddDecision stores a decision record with importance 3.0.
func (s *Store) AddDecision(content string, opts ...AddOption) string {
	return s.Add(content, KindDecision, append([]AddOption{WithImportance(3.0)}, opts...)...)
}

// Query filters Get. Zero values disable the corresponding filter.
type Query struct {
	Kind          Kind
	Tags          []string
	MinImportance float64
	Limit         int
	MaxAge        time.Duration
}

// Get returns the records matching q, most important first and newest first
// among equal importance. It never fails; no match yields an empty slice.
func (s *Store) Get(q Query) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cutoff time.Time
	if q.MaxAge > 0 {
		cutoff = s.now().Add(-q.MaxAge)
	}
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if q.Kind != "" && rec.Kind != q.Kind {
			continue
		}
		if len(q.Tags) > 0 && !rec.HasAnyTag(q.Tags) {
			continue
		}
		if rec.Importance < q.MinImportance {
			continue
		}
		if q.MaxAge > 0 && rec.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, rec.clone())
	}
	sortByRelevance(out)
	return truncate(out, q.Limit)
}

// Recent returns up to limit records in relevance order. A non-positive
// limit defaults to 10.
func (s *Store) Recent(limit int) []Record {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.Get(Query{Limit: limit})
}

// Search returns records whose content contains query, ignoring case. An
// empty query matches every record. A non-positive limit defaults to 10.
func (s *Store) Search(query string, limit int) []Record {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	needle := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if strings.Contains(strings.ToLower(rec.Content), needle) {
			out = append(out, rec.clone())
		}
	}
	sortByRelevance(out)
	return truncate(out, limit)
}

// UpdateImportance sets the importance of the record with the given id,
// clamped to [0, 10]. It reports whether the record exists.
func (s *Store) UpdateImportance(id string, importance float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Importance = clampImportance(importance)
			return true
		}
	}
	return false
}

// Delete removes the record with the given id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every record of the given kind, or all records when kind is
// empty. Ids are not reset.
func (s *Store) Clear(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == "" {
		s.records = nil
		return
	}
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.Kind != kind {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}

// Stats summarises the store. It is safe on an empty store.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ByKind: map[Kind]int{}}
	if len(s.records) == 0 {
		return stats
	}
	var (
		total          float64
		oldest, newest time.Time
	)
	for i, rec := range s.records {
		stats.ByKind[rec.Kind]++
		total += rec.Importance
		if i == 0 || rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		if i == 0 || rec.CreatedAt.After(newest) {
			newest = rec.CreatedAt
		}
	}
	stats.Total = len(s.records)
	stats.AverageImportance = total / float64(len(s.records))
	stats.Oldest = &oldest
	stats.Newest = &newest
	return stats
}

// cleanup drops expired records, then evicts the least important (oldest
// first on ties) until the store fits its capacity. Callers hold s.mu.
func (s *Store) cleanup() {
	cutoff := s.now().Add(-s.retention)
	kept := s.records[:0]
	for _, rec := range s.records {
		if !rec.CreatedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = Record{}
	}
	s.records = kept

	excess := len(s.records) - s.maxRecords
	if excess <= 0 {
		return
	}
	order := make([]int, len(s.records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := s.records[order[a]], s.records[order[b]]
		if ra.Importance != rb.Importance {
			return ra.Importance < rb.Importance
		}
		return ra.CreatedAt.Before(rb.CreatedAt)
	})
	evict := make(map[int]struct{}, excess)
	for _, idx := range order[:excess] {
		evict[idx] = struct{}{}
	}
	survivors := make([]Record, 0, s.maxRecords)
	for i, rec := range s.records {
		if _, drop := evict[i]; !drop {
			survivors = append(survivors, rec)
		}
	}
	s.records = survivors
}

func sortByRelevance(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Importance != records[j].Importance {
			return records[i].Importance > records[j].Importance
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func truncate(records []Record, limit int) []Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
