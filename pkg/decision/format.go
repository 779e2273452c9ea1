package decision

import (
	"fmt"
	"strings"

	"github.com/rajit-b/agentic-app/pkg/action"
)

const defaultReasoning = "Based on your preferences and context"

// FormatFinalResponse renders recommendations for the user. With no
// recommendations it returns an apology.
func FormatFinalResponse(d Decision, recs []action.Recommendation) string {
	if len(recs) == 0 {
		return "I encountered an issue making recommendations. Please try again."
	}
	reasoning := strings.TrimSpace(d.Reasoning)
	if reasoning == "" {
		reasoning = defaultReasoning
	}
	reasoning = strings.TrimRight(reasoning, ".")

	var b strings.Builder
	b.WriteString("🎵 Music Recommendations 🎵\n\n")
	fmt.Fprintf(&b, "%s, here are some songs I think you'll love:\n\n", reasoning)
	for i, rec := range recs {
		fmt.Fprintf(&b, "%d. **%s** by %s\n", i+1, rec.Song, rec.Artist)
		fmt.Fprintf(&b, "   • Genre: %s\n", rec.Genre)
		fmt.Fprintf(&b, "   • Energy: %s\n", rec.EnergyLevel)
		fmt.Fprintf(&b, "   • Why: %s\n\n", rec.Reason)
	}
	b.WriteString("Enjoy your music! 🎶")
	return b.String()
}
