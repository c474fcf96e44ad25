package domain

import (
	"fmt"
	"time"
)

// Flashcard is a single front/back question-answer pair.
// Difficulty, LastReviewed and ReviewCount are reserved for future
// scheduling features and are not populated by the current pipeline.
type Flashcard struct {
	ID    string
	Front string
	Back  string

	Difficulty   string
	LastReviewed *time.Time
	ReviewCount  int
}

// Deck is a named, ordered collection of flashcards owned by one user.
// The card order is display order only. TotalCards is denormalized and
// must always equal len(Flashcards); use NewDeck to keep them in sync.
type Deck struct {
	ID          string
	Title       string
	Description string
	UserID      string
	Flashcards  []Flashcard
	TotalCards  int
	CreatedAt   time.Time
	LastStudied *time.Time
}

// NewDeck builds a deck with TotalCards derived from the card list.
func NewDeck(title, description, userID string, cards []Flashcard) Deck {
	return Deck{
		Title:       title,
		Description: description,
		UserID:      userID,
		Flashcards:  cards,
		TotalCards:  len(cards),
	}
}

// Validate reports a divergence between TotalCards and the actual card
// count, which indicates a corrupted or hand-assembled deck.
func (d Deck) Validate() error {
	if d.TotalCards != len(d.Flashcards) {
		return fmt.Errorf("deck %s: total_cards=%d but %d flashcards", d.ID, d.TotalCards, len(d.Flashcards))
	}
	return nil
}

// QuizResult is the terminal summary of a completed quiz, persisted
// verbatim by the result store.
type QuizResult struct {
	DeckID         string
	Score          int
	TotalQuestions int
	MaxScore       int
	CompletedAt    time.Time
}

// Percentage of the maximum score achieved, rounded to the nearest integer.
func (r QuizResult) Percentage() int {
	if r.MaxScore == 0 {
		return 0
	}
	return int(float64(r.Score)/float64(r.MaxScore)*100 + 0.5)
}

// StudyStats aggregates a user's activity for the progress view.
type StudyStats struct {
	UserID          string
	TotalDecks      int
	TotalCards      int
	StudiedDecks    int
	QuizzesTaken    int
	AverageAccuracy float64
}
