// Package review runs a flashcard study session: cards are flipped, rated
// easy, medium or hard, and cards rated easy drop out of rotation.
package review

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
)

// Level is the difficulty a card was rated with. The zero value means unrated.
type Level string

const (
	Unmarked Level = ""
	Easy     Level = "easy"
	Medium   Level = "medium"
	Hard     Level = "hard"
)

// ParseLevel validates a user-supplied rating.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case Easy, Medium, Hard:
		return l, nil
	}
	return Unmarked, apperr.Invalid(fmt.Sprintf("unknown difficulty %q", s))
}

// Counts tallies ratings across the deck.
type Counts struct {
	Easy     int `json:"easy"`
	Medium   int `json:"medium"`
	Hard     int `json:"hard"`
	Unmarked int `json:"unmarked"`
}

// Session is not safe for concurrent use.
type Session struct {
	ID string

	cards      []models.Flashcard
	levels     []Level
	current    int
	showAnswer bool
	ended      bool
}

// NewSession starts a session over cards. The deck must not be empty.
func NewSession(cards []models.Flashcard) (*Session, error) {
	if len(cards) == 0 {
		return nil, apperr.Invalid("no flashcards to review")
	}
	deck := make([]models.Flashcard, len(cards))
	copy(deck, cards)
	return &Session{
		ID:     uuid.NewString(),
		cards:  deck,
		levels: make([]Level, len(deck)),
	}, nil
}

// Len returns the deck size.
func (s *Session) Len() int { return len(s.cards) }

// Index returns the position of the current card.
func (s *Session) Index() int { return s.current }

// Current returns the card being shown.
func (s *Session) Current() models.Flashcard { return s.cards[s.current] }

// Level returns the rating of card i.
func (s *Session) Level(i int) Level { return s.levels[i] }

// ShowingAnswer reports whether the current card is flipped.
func (s *Session) ShowingAnswer() bool { return s.showAnswer }

// Flip toggles between question and answer.
func (s *Session) Flip() { s.showAnswer = !s.showAnswer }

// Next moves forward to the next card not rated easy, wrapping around.
func (s *Session) Next() {
	s.showAnswer = false
	n := len(s.cards)
	for step := 1; step <= n; step++ {
		i := (s.current + step) % n
		if s.levels[i] != Easy {
			s.current = i
			return
		}
	}
}

// Prev moves back to the previous card not rated easy, wrapping around.
// It stays put when every other card is rated easy.
func (s *Session) Prev() {
	s.showAnswer = false
	n := len(s.cards)
	for step := 1; step < n; step++ {
		i := ((s.current-step)%n + n) % n
		if s.levels[i] != Easy {
			s.current = i
			return
		}
	}
}

// Mark rates the current card. The session ends once every card is easy.
func (s *Session) Mark(l Level) error {
	if l != Easy && l != Medium && l != Hard {
		return apperr.Invalid(fmt.Sprintf("unknown difficulty %q", l))
	}
	s.levels[s.current] = l
	if s.Counts().Easy == len(s.cards) {
		s.ended = true
	}
	return nil
}

// Counts tallies the current ratings.
func (s *Session) Counts() Counts {
	var c Counts
	for _, l := range s.levels {
		switch l {
		case Easy:
			c.Easy++
		case Medium:
			c.Medium++
		case Hard:
			c.Hard++
		default:
			c.Unmarked++
		}
	}
	return c
}

// Progress returns the share of rated cards in [0, 1].
func (s *Session) Progress() float64 {
	c := s.Counts()
	return float64(len(s.cards)-c.Unmarked) / float64(len(s.cards))
}

// Remaining returns the cards still in rotation (not rated easy).
func (s *Session) Remaining() []models.Flashcard {
	out := []models.Flashcard{}
	for i, c := range s.cards {
		if s.levels[i] != Easy {
			out = append(out, c)
		}
	}
	return out
}

// End stops the session.
func (s *Session) End() { s.ended = true }

// Ended reports whether the session is over.
func (s *Session) Ended() bool { return s.ended }

// Reset clears every rating and returns to the first card.
func (s *Session) Reset() {
	for i := range s.levels {
		s.levels[i] = Unmarked
	}
	s.current = 0
	s.showAnswer = false
	s.ended = false
}
