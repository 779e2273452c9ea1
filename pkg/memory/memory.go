package memory

import (
	"fmt"
	"strings"
	"time"
)

// Kind categorises a stored record.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindObservation  Kind = "observation"
	KindDecision     Kind = "decision"
	KindAction       Kind = "action"
	KindLearning     Kind = "learning"
	KindContext      Kind = "context"
)

// Kinds lists every known record kind in declaration order.
var Kinds = []Kind{
	KindConversation,
	KindObservation,
	KindDecision,
	KindAction,
	KindLearning,
	KindContext,
}

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a case-insensitive name into a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if !k.Valid() {
		return "", fmt.Errorf("memory: unknown kind %q", name)
	}
	return k, nil
}

const (
	MinImportance     = 0.0
	MaxImportance     = 10.0
	DefaultImportance = 1.0
)

// Record is a single stored unit of context. The JSON layout matches the
// snapshot format used by SaveFile/LoadFile.
type Record struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Kind       Kind           `json:"memory_type"`
	CreatedAt  time.Time      `json:"timestamp"`
	Importance float64        `json:"importance"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata"`
}

// HasAnyTag reports whether the record carries at least one of tags.
// Matching is exact and case-sensitive.
func (r Record) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

func (r Record) clone() Record {
	dup := r
	if r.Tags != nil {
		dup.Tags = append([]string(nil), r.Tags...)
	} else {
		dup.Tags = []string{}
	}
	dup.Metadata = cloneMetadata(r.Metadata)
	return dup
}

// Stats summarises the current store contents.
type Stats struct {
	Total             int          `json:"total"`
	ByKind            map[Kind]int `json:"by_type"`
	AverageImportance float64      `json:"avg_importance"`
	Oldest            *time.Time   `json:"oldest,omitempty"`
	Newest            *time.Time   `json:"newest,omitempty"`
}

func clampImportance(v float64) float64 {
	if v != v { // NaN
		return MinImportance
	}
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

func cloneMetadata(meta map[string]any) map[string]any {
	dup := make(map[string]any, len(meta))
	for k, v := range meta {
		dup[k] = v
	}
	return dup
}
