package models

// Flashcard is one question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// VideoSuggestion is a suggested YouTube search, optionally resolved to a video.
type VideoSuggestion struct {
	SearchQuery string         `json:"search_query"`
	Reason      string         `json:"reason"`
	VideoID     string         `json:"videoId,omitempty"`
	Snippet     map[string]any `json:"snippet,omitempty"`
}
