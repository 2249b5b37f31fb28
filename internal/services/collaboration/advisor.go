package collaboration

import (
	"time"

	"quantum-collab/internal/models"
)

const (
	engagementWindow = 5 * time.Minute
	largeSessionOver = 3
	// contention needs a group of more than two with at least two typing
	contentionGroupOver = 2
	contentionTypingMin = 2
)

// GenerateSuggestions derives advisory notices from a participant snapshot.
// It is pure: nothing is stored and an empty snapshot yields no suggestions.
func GenerateSuggestions(participants []models.Participant, now time.Time) []models.Suggestion {
	suggestions := make([]models.Suggestion, 0)
	if len(participants) == 0 {
		return suggestions
	}

	recent, typing := 0, 0
	for _, p := range participants {
		if now.Sub(p.LastActivity) <= engagementWindow {
			recent++
		}
		if p.IsTyping {
			typing++
		}
	}

	// fewer than half active: recent/total < 1/2
	if len(participants) > 1 && recent*2 < len(participants) {
		suggestions = append(suggestions, models.Suggestion{
			Type:     models.SuggestionLowEngagement,
			Priority: models.PriorityMedium,
			Message:  "Several participants have been idle for a while. Consider checking in or sharing your screen.",
		})
	}

	if len(participants) > contentionGroupOver && typing >= contentionTypingMin {
		suggestions = append(suggestions, models.Suggestion{
			Type:     models.SuggestionConcurrentEdits,
			Priority: models.PriorityMedium,
			Message:  "Multiple people are editing at once. Coordinate who edits which part to avoid conflicts.",
		})
	}

	if len(participants) > largeSessionOver {
		suggestions = append(suggestions, models.Suggestion{
			Type:     models.SuggestionLargeSession,
			Priority: models.PriorityLow,
			Message:  "This is a large session. Consider voice chat or splitting into smaller groups.",
		})
	}

	return suggestions
}
