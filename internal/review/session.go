package review

import (
	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
)

// ErrEmptyDeck is returned when a session is opened over a deck with no
// flashcards. Callers must show an empty state instead of a session.
var ErrEmptyDeck = errors.New(errors.CodeInvalidArgument,
	errors.WithMessagef("review: deck has no flashcards"))

// Session walks a deck's cards one at a time with a question/answer flip
// toggle and strictly sequential navigation. It is single-owner and not
// safe for concurrent use; every mutation corresponds to one user action.
type Session struct {
	cards   []domain.Flashcard
	index   int
	flipped bool
}

// New opens a review session positioned at the first card, question side up.
func New(cards []domain.Flashcard) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}

	return &Session{cards: cards}, nil
}

// Card returns the card currently shown.
func (s *Session) Card() domain.Flashcard {
	return s.cards[s.index]
}

// Flipped reports whether the answer side is currently visible.
func (s *Session) Flipped() bool {
	return s.flipped
}

// Position returns the 1-based index of the current card and the deck size.
func (s *Session) Position() (current, total int) {
	return s.index + 1, len(s.cards)
}

// HasNext reports whether a card follows the current one.
func (s *Session) HasNext() bool {
	return s.index < len(s.cards)-1
}

// HasPrevious reports whether a card precedes the current one.
func (s *Session) HasPrevious() bool {
	return s.index > 0
}

// ToggleFace strictly inverts the visible side of the current card.
func (s *Session) ToggleFace() {
	s.flipped = !s.flipped
}

// Advance moves to the next card, always landing question side up.
// On the last card it does not move; instead it reports completed=true.
// The completion signal is edge-triggered: calling Advance again on the
// last card reports it again, and the session stays on that card so the
// caller can decide between Restart and teardown.
func (s *Session) Advance() (completed bool) {
	if !s.HasNext() {
		return true
	}

	s.index++
	s.flipped = false
	return false
}

// Retreat moves to the previous card question side up; no-op at the first card.
func (s *Session) Retreat() {
	if !s.HasPrevious() {
		return
	}

	s.index--
	s.flipped = false
}

// Restart returns to the first card, question side up.
func (s *Session) Restart() {
	s.index = 0
	s.flipped = false
}
