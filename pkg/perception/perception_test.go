package perception

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour int) time.Time {
	return time.Date(2025, 3, 14, hour, 30, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func TestPerceiveDefaultsTimestamp(t *testing.T) {
	m := NewManager(func() time.Time { return at(9) })
	assert.Equal(t, "", m.FormatContext())
	assert.Nil(t, m.Tags())

	in := m.Perceive("happy", "coding", time.Time{}, nil)
	assert.Equal(t, at(9), in.Timestamp)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, in, cur)
}

func TestFormatContext(t *testing.T) {
	m := NewManager(nil)
	m.Perceive("calm", "reading", at(14), nil)
	assert.Equal(t, "User Context:\n- Mood: calm\n- Activity: reading\n- Time: 2025-03-14 14:30:00", m.FormatContext())

	m.Perceive("calm", "reading", at(14), &Location{City: "Pune", Lat: ptr(18.52), Lon: ptr(73.8567)})
	assert.Contains(t, m.FormatContext(), "- Location: Pune (18.52, 73.8567)")

	m.Perceive("calm", "reading", at(14), &Location{Lat: ptr(1)})
	assert.Contains(t, m.FormatContext(), "- Location: Unknown")
	assert.NotContains(t, m.FormatContext(), "(1")

	m.Perceive("calm", "reading", at(14), &Location{Text: "Berlin, Germany"})
	assert.Contains(t, m.FormatContext(), "- Location: Berlin, Germany")
}

func TestDeriveTags(t *testing.T) {
	cases := []struct {
		mood, activity string
		hour           int
		want           []string
	}{
		{"Happy and EXCITED", "coding late", 9, []string{"positive-energy", "focus", "morning"}},
		{"feeling down", "gym session", 12, []string{"melancholic", "exercise", "afternoon"}},
		{"zen", "party time", 17, []string{"calm", "social", "evening"}},
		{"frustrated", "driving home", 21, []string{"intense", "travel", "night"}},
		{"meh", "nothing", 4, []string{"night"}},
		{"relaxed", "chill", 11, []string{"calm", "relaxation", "morning"}},
		{"happy but sad", "study and workout", 16, []string{"positive-energy", "focus", "afternoon"}},
	}
	for _, tc := range cases {
		got := DeriveTags(Input{Mood: tc.mood, Activity: tc.activity, Timestamp: at(tc.hour)})
		assert.Equal(t, tc.want, got, "%s/%s", tc.mood, tc.activity)
	}
}

func TestTimeOfDayBoundaries(t *testing.T) {
	want := map[int]string{0: "night", 4: "night", 5: "morning", 11: "morning", 12: "afternoon",
		16: "afternoon", 17: "evening", 20: "evening", 21: "night", 23: "night"}
	for hour, bucket := range want {
		assert.Equal(t, bucket, TimeOfDay(at(hour)), "hour %d", hour)
	}
}
