package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/event"
)

// DeckLister is the slice of the deck store the progress view needs.
type DeckLister interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Deck, error)
}

// AccuracySource reports a user's average quiz accuracy and quiz count.
type AccuracySource interface {
	Accuracy(ctx context.Context, userID string) (float64, int, error)
}

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	Decks    DeckLister
	Results  AccuracySource
}

// Service tracks study activity in redis and assembles the progress view.
// It feeds off the event bus: every deck.studied and quiz.completed event
// bumps the user's activity set, and quiz completions also race for the
// deck's best-score board.
type Service struct {
	eb      *event.Bus
	redis   redis.UniversalClient
	prefix  string
	decks   DeckLister
	results AccuracySource
}

func NewService(c Config) *Service {
	s := &Service{
		eb:      c.EventBus,
		redis:   c.Redis,
		prefix:  c.Prefix,
		decks:   c.Decks,
		results: c.Results,
	}

	s.eb.Subscribe(domain.EventNameDeckStudied, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventDeckStudied)
		return s.RecordActivity(ctx, ev.UserID, ev.DeckID, ev.StudiedAt)
	})

	s.eb.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventQuizCompleted)
		if err := s.RecordActivity(ctx, ev.UserID, ev.Result.DeckID, ev.Result.CompletedAt); err != nil {
			return err
		}
		return s.RecordScore(ctx, ev.Result.DeckID, ev.UserID, ev.Result.Percentage())
	})

	return s
}

// Activity is one entry of the recent-activity list.
type Activity struct {
	DeckID    string
	StudiedAt time.Time
}

// RecordActivity stamps the deck as the user's most recent study target.
// Scores are unix-milli timestamps so ZREVRANGE yields newest-first.
func (s *Service) RecordActivity(ctx context.Context, userID, deckID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}

	if err := s.redis.ZAdd(ctx, s.activityKey(userID), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: deckID,
	}).Err(); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	return nil
}

// RecentActivity returns the user's n most recently studied decks.
func (s *Service) RecentActivity(ctx context.Context, userID string, n int) ([]Activity, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.activityKey(userID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	activities := make([]Activity, 0, len(res))
	for _, z := range res {
		activities = append(activities, Activity{
			DeckID:    z.Member.(string),
			StudiedAt: time.UnixMilli(int64(z.Score)),
		})
	}

	return activities, nil
}

// RecordScore keeps the user's best percentage for the deck. Lower
// attempts never overwrite a higher standing score.
func (s *Service) RecordScore(ctx context.Context, deckID, userID string, percentage int) error {
	current, err := s.redis.ZScore(ctx, s.scoreKey(deckID), userID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read best score: %w", err)
	}

	if err == nil && current >= float64(percentage) {
		return nil
	}

	if err := s.redis.ZAdd(ctx, s.scoreKey(deckID), redis.Z{
		Score:  float64(percentage),
		Member: userID,
	}).Err(); err != nil {
		return fmt.Errorf("record best score: %w", err)
	}

	return nil
}

// BestScore returns the user's best percentage on a deck, ok=false if the
// user never finished a quiz on it.
func (s *Service) BestScore(ctx context.Context, deckID, userID string) (int, bool, error) {
	score, err := s.redis.ZScore(ctx, s.scoreKey(deckID), userID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("best score: %w", err)
	}

	return int(score), true, nil
}

// Stats assembles the progress tab: deck and card totals from the deck
// store, accuracy from the result store.
func (s *Service) Stats(ctx context.Context, userID string) (domain.StudyStats, error) {
	decks, err := s.decks.ListByUser(ctx, userID)
	if err != nil {
		return domain.StudyStats{}, fmt.Errorf("list decks: %w", err)
	}

	stats := domain.StudyStats{UserID: userID, TotalDecks: len(decks)}
	for _, d := range decks {
		stats.TotalCards += d.TotalCards
		if d.LastStudied != nil {
			stats.StudiedDecks++
		}
	}

	stats.AverageAccuracy, stats.QuizzesTaken, err = s.results.Accuracy(ctx, userID)
	if err != nil {
		return domain.StudyStats{}, fmt.Errorf("accuracy: %w", err)
	}

	return stats, nil
}

func (s *Service) activityKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:activity", s.prefix, userID)
}

func (s *Service) scoreKey(deckID string) string {
	return fmt.Sprintf("%s:deck:%s:best", s.prefix, deckID)
}
