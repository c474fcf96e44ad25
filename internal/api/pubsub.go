package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/snapstudy/snapstudy/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	QuizCompleted struct {
		DeckID     string `json:"deck_id"`
		Score      int    `json:"score"`
		MaxScore   int    `json:"max_score"`
		Percentage int    `json:"percentage"`
	}
)

// PublishQuizCompleted pushes the completion summary to the user's redis
// channel so other signed-in devices can refresh their progress view.
func (a *API) PublishQuizCompleted(ctx context.Context, e domain.EventQuizCompleted) error {
	data := QuizCompleted{
		DeckID:     e.Result.DeckID,
		Score:      e.Result.Score,
		MaxScore:   e.Result.MaxScore,
		Percentage: e.Result.Percentage(),
	}

	return a.publishNotification(ctx, e.UserID, e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
