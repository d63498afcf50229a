// Package artifact names the derived study artifacts kept per notebook and
// converts their stored string form to and from typed values.
package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
)

// Stored field names.
const (
	Transcript  = "transcript"
	Summary     = "summary_title"
	Flashcards  = "flashcards"
	Suggestions = "yt_suggest"
)

// Fields lists every known artifact field.
var Fields = []string{Transcript, Summary, Flashcards, Suggestions}

// Known reports whether field is one of Fields.
func Known(field string) bool {
	for _, f := range Fields {
		if f == field {
			return true
		}
	}
	return false
}

// IsText reports whether field holds free text worth indexing for search.
func IsText(field string) bool {
	return field == Transcript || field == Summary
}

// Validate checks that value is acceptable for field. Structured fields
// must hold a JSON list of the right shape.
func Validate(field, value string) error {
	switch field {
	case Transcript, Summary:
		return nil
	case Flashcards:
		_, err := DecodeFlashcards(value)
		return err
	case Suggestions:
		_, err := DecodeSuggestions(value)
		return err
	}
	return apperr.Invalid(fmt.Sprintf("unknown artifact field %q", field))
}

// DecodeModelJSON removes the first ```json and ``` markers that generative
// models wrap around JSON output, then decodes the rest into v.
func DecodeModelJSON(raw string, v any) error {
	cleaned := strings.Replace(raw, "```json", "", 1)
	cleaned = strings.Replace(cleaned, "```", "", 1)
	cleaned = strings.TrimSpace(cleaned)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return apperr.Invalid(fmt.Sprintf("could not parse model output: %v", err))
	}
	return nil
}

// EncodeFlashcards returns the stored form of cards.
func EncodeFlashcards(cards []models.Flashcard) (string, error) {
	return encodeList(cards)
}

// DecodeFlashcards parses a stored flashcards value. Empty input yields an
// empty deck.
func DecodeFlashcards(value string) ([]models.Flashcard, error) {
	cards := []models.Flashcard{}
	if err := decodeList(value, &cards); err != nil {
		return nil, err
	}
	for i, c := range cards {
		if strings.TrimSpace(c.Question) == "" {
			return nil, apperr.Invalid(fmt.Sprintf("flashcard %d has no question", i))
		}
	}
	return cards, nil
}

// EncodeSuggestions returns the stored form of suggestions.
func EncodeSuggestions(s []models.VideoSuggestion) (string, error) {
	return encodeList(s)
}

// DecodeSuggestions parses a stored yt_suggest value.
func DecodeSuggestions(value string) ([]models.VideoSuggestion, error) {
	out := []models.VideoSuggestion{}
	if err := decodeList(value, &out); err != nil {
		return nil, err
	}
	for i, s := range out {
		if strings.TrimSpace(s.SearchQuery) == "" {
			return nil, apperr.Invalid(fmt.Sprintf("suggestion %d has no search_query", i))
		}
	}
	return out, nil
}

func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("artifact: encode: %w", err)
	}
	return string(data), nil
}

func decodeList[T any](value string, out *[]T) error {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return apperr.Invalid(fmt.Sprintf("value is not a valid JSON list: %v", err))
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}
