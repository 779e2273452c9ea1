package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedStore(t *testing.T) *Store {
	t.Helper()
	clock := newFakeClock()
	s := NewStore(5, 6*time.Hour, WithClock(clock.tick()))
	s.Add("Mood: happy; Activity: running", KindConversation,
		WithImportance(2), WithTags("run", "morning"), WithMetadata(map[string]any{"source": "cli"}))
	s.Add("picked recommend_music", KindDecision, WithImportance(3))
	doomed := s.Add("temporary", KindContext)
	require.True(t, s.Delete(doomed))
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := populatedStore(t)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Store
	require.NoError(t, json.Unmarshal(data, &restored))

	want := s.Snapshot()
	got := restored.Snapshot()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(4), got.NextID)
	assert.Equal(t, 5, restored.MaxRecords())
	assert.Equal(t, 6*time.Hour, restored.Retention())
}

func TestSnapshotLayout(t *testing.T) {
	s := populatedStore(t)
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"memories", "next_id", "max_memories", "retention_hours"}, keys(raw))

	memories := raw["memories"].([]any)
	require.Len(t, memories, 2)
	first := memories[0].(map[string]any)
	assert.ElementsMatch(t,
		[]string{"id", "content", "memory_type", "timestamp", "importance", "tags", "metadata"},
		keys(first))
	assert.Equal(t, "conversation", first["memory_type"])
}

func TestUnmarshalDefaults(t *testing.T) {
	var s Store
	require.NoError(t, json.Unmarshal([]byte(`{}`), &s))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.NextID)
	assert.Equal(t, 100, snap.MaxMemories)
	assert.Equal(t, 24.0, snap.RetentionHours)
	assert.Empty(t, snap.Memories)
}

func TestRestoreAdvancesIDCounter(t *testing.T) {
	snap := Snapshot{
		Memories: []Record{
			{ID: "mem_7", Content: "x", Kind: KindContext, CreatedAt: time.Now(), Importance: 1},
		},
		NextID:         2,
		MaxMemories:    10,
		RetentionHours: 1,
	}
	s := Restore(snap)
	assert.Equal(t, "mem_8", s.Add("y", KindContext))
}

func TestSaveAndLoadFile(t *testing.T) {
	s := populatedStore(t)
	path := filepath.Join(t.TempDir(), "nested", "memory.json")

	require.NoError(t, SaveFile(path, s))
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	if diff := cmp.Diff(s.Snapshot(), loaded.Snapshot()); diff != "" {
		t.Fatalf("loaded snapshot mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should be renamed away")
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	assert.Error(t, SaveFile("", NewStore(1, time.Hour)))
	assert.Error(t, SaveFile(bad, nil))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
