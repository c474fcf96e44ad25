package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/snapstudy/snapstudy/internal/auth"
	"github.com/snapstudy/snapstudy/internal/deck"
	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/event"
	"github.com/snapstudy/snapstudy/internal/progress"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Decks        DeckStore
	Results      ResultStore
	Progress     ProgressService
	Generator    Generator
	Redis        Redis
	PubsubPrefix string
	JWTSecret    string
}

// DeckStore is the deck persistence surface the API exposes.
type DeckStore interface {
	Create(ctx context.Context, req deck.CreateRequest) (domain.Deck, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Deck, error)
	MarkStudied(ctx context.Context, deckID string) error
	Delete(ctx context.Context, deckID, userID string) error
}

// ResultStore persists completed quiz results.
type ResultStore interface {
	Save(ctx context.Context, userID string, r domain.QuizResult) error
}

// ProgressService assembles the progress view.
type ProgressService interface {
	Stats(ctx context.Context, userID string) (domain.StudyStats, error)
	RecentActivity(ctx context.Context, userID string, n int) ([]progress.Activity, error)
}

// Generator turns an image into flashcard pairs.
type Generator interface {
	FromImage(ctx context.Context, imageBase64 string) ([]domain.Flashcard, error)
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	decks     DeckStore
	results   ResultStore
	progress  ProgressService
	generator Generator

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		decks:     c.Decks,
		results:   c.Results,
		progress:  c.Progress,
		generator: c.Generator,
		redis:     c.Redis,
		prefix:    c.PubsubPrefix,
	}

	v1 := c.Router.Group("/v1", auth.Middleware(c.JWTSecret))
	v1.POST("/generate", a.GenerateFlashcards)
	v1.POST("/decks", a.CreateDeck)
	v1.GET("/decks", a.ListDecks)
	v1.DELETE("/decks/:id", a.DeleteDeck)
	v1.POST("/decks/:id/studied", a.MarkDeckStudied)
	v1.POST("/quiz/results", a.SaveQuizResult)
	v1.GET("/progress", a.GetProgress)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameQuizCompleted, func(ctx context.Context, e event.Event) error {
		return a.PublishQuizCompleted(ctx, e.(domain.EventQuizCompleted))
	})

	return a
}
