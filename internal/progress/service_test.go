package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/event"
	"github.com/snapstudy/snapstudy/internal/progress"
)

func TestService_RecentActivity(t *testing.T) {
	s := makeService(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordActivity(context.Background(), "u1", "d1", base))
	require.NoError(t, s.RecordActivity(context.Background(), "u1", "d2", base.Add(time.Hour)))
	require.NoError(t, s.RecordActivity(context.Background(), "u1", "d3", base.Add(2*time.Hour)))

	// Restudying an old deck moves it to the front.
	require.NoError(t, s.RecordActivity(context.Background(), "u1", "d1", base.Add(3*time.Hour)))

	acts, err := s.RecentActivity(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	require.Equal(t, "d1", acts[0].DeckID)
	require.Equal(t, "d3", acts[1].DeckID)
	require.Equal(t, base.Add(3*time.Hour).UnixMilli(), acts[0].StudiedAt.UnixMilli())
}

func TestService_RecordScore(t *testing.T) {
	tests := map[string]struct {
		attempts []int
		want     int
	}{
		"first attempt sets the best score":   {attempts: []int{60}, want: 60},
		"higher attempt overwrites":           {attempts: []int{60, 80}, want: 80},
		"lower attempt keeps the best score":  {attempts: []int{80, 40}, want: 80},
		"equal attempt keeps the best score":  {attempts: []int{75, 75}, want: 75},
		"perfect score survives later misses": {attempts: []int{100, 0, 50}, want: 100},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			s := makeService(t)

			for _, pct := range tt.attempts {
				require.NoError(t, s.RecordScore(context.Background(), "d1", "u1", pct))
			}

			got, ok, err := s.BestScore(context.Background(), "d1", "u1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("no quiz yet means no best score", func(t *testing.T) {
		s := makeService(t)

		_, ok, err := s.BestScore(context.Background(), "d1", "u1")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestService_EventSubscriptions(t *testing.T) {
	eb := event.NewBus()
	s := makeService(t, withEventBus(eb))

	completedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	eb.Publish(context.Background(), domain.EventDeckStudied{
		DeckID:    "d1",
		UserID:    "u1",
		StudiedAt: completedAt.Add(-time.Hour),
	})
	eb.Publish(context.Background(), domain.EventQuizCompleted{
		UserID: "u1",
		Result: domain.QuizResult{
			DeckID:         "d2",
			Score:          30,
			TotalQuestions: 5,
			MaxScore:       50,
			CompletedAt:    completedAt,
		},
	})
	eb.Stop()

	acts, err := s.RecentActivity(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	require.Equal(t, "d2", acts[0].DeckID)
	require.Equal(t, "d1", acts[1].DeckID)

	best, ok, err := s.BestScore(context.Background(), "d2", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 60, best)
}

func TestService_Stats(t *testing.T) {
	studied := time.Now()
	s := makeService(t,
		withDecks(fakeDecks{
			{ID: "d1", TotalCards: 5, LastStudied: &studied},
			{ID: "d2", TotalCards: 8},
		}),
		withResults(fakeResults{accuracy: 72.5, taken: 4}),
	)

	stats, err := s.Stats(context.Background(), "u1")
	require.NoError(t, err)

	require.Equal(t, domain.StudyStats{
		UserID:          "u1",
		TotalDecks:      2,
		TotalCards:      13,
		StudiedDecks:    1,
		QuizzesTaken:    4,
		AverageAccuracy: 72.5,
	}, stats)
}

type fakeDecks []domain.Deck

func (f fakeDecks) ListByUser(_ context.Context, userID string) ([]domain.Deck, error) {
	return f, nil
}

type fakeResults struct {
	accuracy float64
	taken    int
}

func (f fakeResults) Accuracy(_ context.Context, _ string) (float64, int, error) {
	return f.accuracy, f.taken, nil
}

func makeService(t *testing.T, opts ...options) *progress.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := progress.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
	}

	for _, opt := range opts {
		opt(&c)
	}

	return progress.NewService(c)
}

type options func(c *progress.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *progress.Config) {
		c.EventBus = eb
	}
}

func withDecks(d progress.DeckLister) options {
	return func(c *progress.Config) {
		c.Decks = d
	}
}

func withResults(r progress.AccuracySource) options {
	return func(c *progress.Config) {
		c.Results = r
	}
}
