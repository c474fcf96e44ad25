package review_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/review"
)

func makeCards(n int) []domain.Flashcard {
	cards := make([]domain.Flashcard, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, domain.Flashcard{
			ID:    string(rune('a' + i)),
			Front: "q" + string(rune('0'+i)),
			Back:  "a" + string(rune('0'+i)),
		})
	}
	return cards
}

func TestNew(t *testing.T) {
	t.Run("empty deck is rejected", func(t *testing.T) {
		_, err := review.New(nil)
		require.ErrorIs(t, err, review.ErrEmptyDeck)
	})

	t.Run("session starts at first card, question side", func(t *testing.T) {
		s, err := review.New(makeCards(3))
		require.NoError(t, err)

		cur, total := s.Position()
		require.Equal(t, 1, cur)
		require.Equal(t, 3, total)
		require.False(t, s.Flipped())
		require.Equal(t, "q0", s.Card().Front)
	})
}

func TestSession_Navigation(t *testing.T) {
	type outputs struct {
		position  int
		flipped   bool
		completed []bool
	}

	tests := map[string]struct {
		cards  int
		steps  func(s *review.Session) []bool
		assert func(t *testing.T, out outputs)
	}{
		"toggle strictly inverts, twice returns to question side": {
			cards: 2,
			steps: func(s *review.Session) []bool {
				s.ToggleFace()
				s.ToggleFace()
				return nil
			},
			assert: func(t *testing.T, out outputs) {
				require.False(t, out.flipped)
				require.Equal(t, 1, out.position)
			},
		},

		"advance resets the flip state at the new card": {
			cards: 3,
			steps: func(s *review.Session) []bool {
				s.ToggleFace()
				return []bool{s.Advance()}
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 2, out.position)
				require.False(t, out.flipped)
				require.Equal(t, []bool{false}, out.completed)
			},
		},

		"retreat resets the flip state and stops at the first card": {
			cards: 3,
			steps: func(s *review.Session) []bool {
				s.Advance()
				s.ToggleFace()
				s.Retreat()
				s.Retreat()
				s.Retreat()
				return nil
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 1, out.position)
				require.False(t, out.flipped)
			},
		},

		"three advances on a three-card deck: completion fires without moving": {
			cards: 3,
			steps: func(s *review.Session) []bool {
				return []bool{s.Advance(), s.Advance(), s.Advance()}
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, []bool{false, false, true}, out.completed)
				require.Equal(t, 3, out.position)
			},
		},

		"completion is re-emitted on every advance at the last card": {
			cards: 2,
			steps: func(s *review.Session) []bool {
				return []bool{s.Advance(), s.Advance(), s.Advance(), s.Advance()}
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, []bool{false, true, true, true}, out.completed)
				require.Equal(t, 2, out.position)
			},
		},

		"restart returns to the first card question side up": {
			cards: 4,
			steps: func(s *review.Session) []bool {
				s.Advance()
				s.Advance()
				s.ToggleFace()
				s.Restart()
				return nil
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, 1, out.position)
				require.False(t, out.flipped)
			},
		},

		"single-card deck completes immediately on advance": {
			cards: 1,
			steps: func(s *review.Session) []bool {
				return []bool{s.Advance()}
			},
			assert: func(t *testing.T, out outputs) {
				require.Equal(t, []bool{true}, out.completed)
				require.Equal(t, 1, out.position)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := review.New(makeCards(tt.cards))
			require.NoError(t, err)

			completed := tt.steps(s)

			pos, _ := s.Position()
			tt.assert(t, outputs{
				position:  pos,
				flipped:   s.Flipped(),
				completed: completed,
			})
		})
	}
}

func TestSession_FlipNeverCarriesAcrossCards(t *testing.T) {
	s, err := review.New(makeCards(5))
	require.NoError(t, err)

	for s.HasNext() {
		s.ToggleFace()
		require.True(t, s.Flipped())

		done := s.Advance()
		require.False(t, done)
		require.False(t, s.Flipped(), "flip state must reset on every card transition")
	}
}
