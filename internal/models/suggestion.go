package models

// SuggestionPriority ranks advisory notices
type SuggestionPriority string

const (
	PriorityLow    SuggestionPriority = "low"
	PriorityMedium SuggestionPriority = "medium"
	PriorityHigh   SuggestionPriority = "high"
)

// Suggestion is a derived, non-persisted notice about session health
type Suggestion struct {
	Type     string             `json:"type"`
	Priority SuggestionPriority `json:"priority"`
	Message  string             `json:"message"`
}

const (
	SuggestionLowEngagement   = "low_engagement"
	SuggestionConcurrentEdits = "concurrent_edits"
	SuggestionLargeSession    = "large_session"
)
