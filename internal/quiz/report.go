package quiz

import (
	"math"
	"time"

	"github.com/snapstudy/snapstudy/internal/domain"
)

// Report is the terminal summary of a completed quiz. Score is always the
// sum of recorded awards, never re-derived from the last answer at display
// time, so it cannot double-count the final question.
type Report struct {
	Score        int
	MaxScore     int
	CorrectCount int
	Percentage   int
}

// Report returns the final summary. Valid only once the session completed.
func (s *Session) Report() (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		return Report{}, ErrNotCompleted
	}

	max := len(s.order) * PointsPerQuestion
	return Report{
		Score:        s.score,
		MaxScore:     max,
		CorrectCount: s.score / PointsPerQuestion,
		Percentage:   int(math.Round(float64(s.score) / float64(max) * 100)),
	}, nil
}

// Result packages the summary for the external result store.
func (s *Session) Result(deckID string) (domain.QuizResult, error) {
	r, err := s.Report()
	if err != nil {
		return domain.QuizResult{}, err
	}

	s.mu.Lock()
	total := len(s.order)
	s.mu.Unlock()

	return domain.QuizResult{
		DeckID:         deckID,
		Score:          r.Score,
		TotalQuestions: total,
		MaxScore:       r.MaxScore,
		CompletedAt:    time.Now(),
	}, nil
}
