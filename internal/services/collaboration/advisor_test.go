package collaboration

import (
	"context"
	"testing"
	"time"

	"quantum-collab/internal/models"

	"github.com/stretchr/testify/assert"
)

func makeParticipants(now time.Time, typing int, idle int, total int) []models.Participant {
	out := make([]models.Participant, 0, total)
	for i := 0; i < total; i++ {
		p := models.Participant{ConnectionID: string(rune('a' + i)), LastActivity: now}
		if i < typing {
			p.IsTyping = true
		}
		if i >= total-idle {
			p.LastActivity = now.Add(-10 * time.Minute)
		}
		out = append(out, p)
	}
	return out
}

func suggestionTypes(suggestions []models.Suggestion) []string {
	types := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		types = append(types, s.Type)
	}
	return types
}

func TestGenerateSuggestions(t *testing.T) {
	now := newFakeClock().Now()

	tests := []struct {
		name   string
		input  []models.Participant
		expect []string
	}{
		{"empty session", nil, []string{}},
		{"solo idle user", makeParticipants(now, 0, 1, 1), []string{}},
		{"three with two typing", makeParticipants(now, 2, 0, 3), []string{models.SuggestionConcurrentEdits}},
		{"four with two typing", makeParticipants(now, 2, 0, 4), []string{models.SuggestionConcurrentEdits, models.SuggestionLargeSession}},
		{"two both typing", makeParticipants(now, 2, 0, 2), []string{}},
		{"three with one typing", makeParticipants(now, 1, 0, 3), []string{}},
		{"mostly idle", makeParticipants(now, 0, 2, 3), []string{models.SuggestionLowEngagement}},
		{"exactly half idle", makeParticipants(now, 0, 1, 2), []string{}},
		{"large and idle", makeParticipants(now, 0, 4, 5), []string{models.SuggestionLowEngagement, models.SuggestionLargeSession}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSuggestions(tt.input, now)
			assert.NotNil(t, got)
			assert.Equal(t, tt.expect, suggestionTypes(got))
		})
	}
}

func TestGenerateSuggestionsPriorities(t *testing.T) {
	now := newFakeClock().Now()
	got := GenerateSuggestions(makeParticipants(now, 0, 4, 5), now)

	assert.Equal(t, models.PriorityMedium, got[0].Priority)
	assert.Equal(t, models.PriorityLow, got[1].Priority)
	for _, s := range got {
		assert.NotEmpty(t, s.Message)
	}
}

func TestHubSuggestionsFollowPresence(t *testing.T) {
	hub, clock := newTestHub(t)
	a, _ := join(t, hub, "ua", "s1", "p1")
	b, _ := join(t, hub, "ub", "s1", "p1")
	join(t, hub, "uc", "s1", "p1")

	send(t, hub, a, map[string]interface{}{"type": "typing_start"})
	send(t, hub, b, map[string]interface{}{"type": "typing_start"})
	assert.Equal(t, []string{models.SuggestionConcurrentEdits}, suggestionTypes(hub.GenerateSuggestions("s1")))

	join(t, hub, "ud", "s1", "p1")
	assert.Equal(t, []string{models.SuggestionConcurrentEdits, models.SuggestionLargeSession},
		suggestionTypes(hub.GenerateSuggestions("s1")))

	// everyone idle past the window
	clock.Advance(6 * time.Minute)
	assert.Contains(t, suggestionTypes(hub.GenerateSuggestions("s1")), models.SuggestionLowEngagement)

	_, err := hub.EndSession(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Empty(t, hub.GenerateSuggestions("s1"))
}
