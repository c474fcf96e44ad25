package result

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
	"github.com/snapstudy/snapstudy/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Store persists completed quiz results. Saving is fire-and-forget from
// the session engine's point of view: callers log failures and move on.
type Store struct {
	db *pgxpool.Pool
	eb *event.Bus
}

func NewStore(c Config) *Store {
	return &Store{
		db: c.DB,
		eb: c.EventBus,
	}
}

// Save inserts the result verbatim and announces the completion.
func (s *Store) Save(ctx context.Context, userID string, r domain.QuizResult) error {
	if r.MaxScore != r.TotalQuestions*10 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("result: max_score %d does not match %d questions", r.MaxScore, r.TotalQuestions))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate result ID: %w", err)
	}

	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}

	const stmt = `
INSERT INTO quiz_results (result_id, deck_id, user_id, score, total_questions, max_score, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err = s.db.Exec(ctx, stmt, id, r.DeckID, userID, r.Score, r.TotalQuestions, r.MaxScore, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventQuizCompleted{
			UserID: userID,
			Result: r,
		})
	}

	return nil
}

// ListByDeck returns a deck's results newest-first.
func (s *Store) ListByDeck(ctx context.Context, deckID string) ([]domain.QuizResult, error) {
	const stmt = `
SELECT deck_id, score, total_questions, max_score, completed_at
FROM quiz_results
WHERE deck_id = $1
ORDER BY completed_at DESC;`

	rows, err := s.db.Query(ctx, stmt, deckID)
	if err != nil {
		return nil, fmt.Errorf("select quiz results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.QuizResult, error) {
		var qr domain.QuizResult
		if err := r.Scan(&qr.DeckID, &qr.Score, &qr.TotalQuestions, &qr.MaxScore, &qr.CompletedAt); err != nil {
			return domain.QuizResult{}, err
		}
		return qr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect quiz results: %w", err)
	}

	return results, nil
}

// Accuracy returns the user's average score fraction across all quizzes,
// as a percentage. Aggregated in SQL as numeric to avoid drifting float
// sums; decimal carries it back out.
func (s *Store) Accuracy(ctx context.Context, userID string) (float64, int, error) {
	const stmt = `
SELECT COALESCE(SUM(score), 0)::numeric, COALESCE(SUM(max_score), 0)::numeric, COUNT(*)
FROM quiz_results
WHERE user_id = $1;`

	var (
		score, max decimal.Decimal
		taken      int
	)
	if err := s.db.QueryRow(ctx, stmt, userID).Scan(&score, &max, &taken); err != nil {
		return 0, 0, fmt.Errorf("aggregate quiz results: %w", err)
	}

	if max.IsZero() {
		return 0, taken, nil
	}

	pct := score.Div(max).Mul(decimal.NewFromInt(100)).Round(1)
	return pct.InexactFloat64(), taken, nil
}
