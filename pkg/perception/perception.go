// Package perception turns raw user input into the structured context the
// decision step and the memory store consume.
package perception

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TimeLayout is used when rendering timestamps into agent context.
const TimeLayout = "2006-01-02 15:04:05"

// Location is optional positional context supplied by the user.
type Location struct {
	City string   `json:"city,omitempty"`
	Text string   `json:"text,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// Label returns the human-readable place name.
func (l *Location) Label() string {
	switch {
	case l == nil:
		return ""
	case strings.TrimSpace(l.City) != "":
		return strings.TrimSpace(l.City)
	case strings.TrimSpace(l.Text) != "":
		return strings.TrimSpace(l.Text)
	default:
		return "Unknown"
	}
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Lat != nil && l.Lon != nil
}

// Input is the structured form of one user request.
type Input struct {
	Mood      string    `json:"mood"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
	Location  *Location `json:"location,omitempty"`
}

// Manager holds the most recently perceived input.
type Manager struct {
	mu      sync.Mutex
	now     func() time.Time
	current *Input
}

// NewManager returns a manager using the wall clock. A nil now selects time.Now.
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now}
}

// Perceive records and returns the structured input. A zero ts is replaced
// with the current time.
func (m *Manager) Perceive(mood, activity string, ts time.Time, loc *Location) Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts.IsZero() {
		ts = m.now()
	}
	in := Input{Mood: mood, Activity: activity, Timestamp: ts, Location: loc}
	m.current = &in
	return in
}

// Current returns the last perceived input.
func (m *Manager) Current() (Input, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Input{}, false
	}
	return *m.current, true
}

// FormatContext renders the current input for the decision step. It returns
// "" before the first Perceive.
func (m *Manager) FormatContext() string {
	in, ok := m.Current()
	if !ok {
		return ""
	}
	return FormatContext(in)
}

// Tags derives semantic tags from the current input.
func (m *Manager) Tags() []string {
	in, ok := m.Current()
	if !ok {
		return nil
	}
	return DeriveTags(in)
}

// FormatContext renders in as a "User Context:" block.
func FormatContext(in Input) string {
	var b strings.Builder
	b.WriteString("User Context:\n")
	fmt.Fprintf(&b, "- Mood: %s\n", in.Mood)
	fmt.Fprintf(&b, "- Activity: %s\n", in.Activity)
	fmt.Fprintf(&b, "- Time: %s", in.Timestamp.Format(TimeLayout))
	if in.Location != nil {
		fmt.Fprintf(&b, "\n- Location: %s", in.Location.Label())
		if in.Location.HasCoordinates() {
			fmt.Fprintf(&b, " (%s, %s)", formatCoord(*in.Location.Lat), formatCoord(*in.Location.Lon))
		}
	}
	return b.String()
}

type category struct {
	tag      string
	keywords []string
}

var moodCategories = []category{
	{"positive-energy", []string{"happy", "excited", "joyful", "energetic"}},
	{"melancholic", []string{"sad", "melancholy", "depressed", "down"}},
	{"calm", []string{"calm", "peaceful", "relaxed", "zen"}},
	{"intense", []string{"angry", "frustrated", "aggressive"}},
}

var activityCategories = []category{
	{"focus", []string{"work", "study", "focus", "coding"}},
	{"exercise", []string{"exercise", "workout", "gym", "running"}},
	{"relaxation", []string{"relax", "meditate", "chill", "rest"}},
	{"social", []string{"party", "celebrate", "social"}},
	{"travel", []string{"commute", "travel", "driving"}},
}

// DeriveTags maps mood and activity onto at most one category each (first
// match wins, substring match ignoring case) and always appends a time of
// day bucket.
func DeriveTags(in Input) []string {
	tags := make([]string, 0, 3)
	if tag, ok := match(moodCategories, in.Mood); ok {
		tags = append(tags, tag)
	}
	if tag, ok := match(activityCategories, in.Activity); ok {
		tags = append(tags, tag)
	}
	return append(tags, TimeOfDay(in.Timestamp))
}

// TimeOfDay buckets the hour of t: morning 05-11, afternoon 12-16, evening
// 17-20 and night otherwise.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}

func match(categories []category, text string) (string, bool) {
	text = strings.ToLower(text)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.tag, true
			}
		}
	}
	return "", false
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
