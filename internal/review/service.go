package review

import (
	"context"
	"log/slog"

	"github.com/snapstudy/snapstudy/internal/domain"
)

// DeckSource is the slice of the deck store the review flow needs.
type DeckSource interface {
	Get(ctx context.Context, deckID string) (domain.Deck, error)
	MarkStudied(ctx context.Context, deckID string) error
}

type Config struct {
	Decks DeckSource
}

// Service opens review sessions against the remote deck store.
type Service struct {
	decks DeckSource
}

func NewService(c Config) *Service {
	return &Service{decks: c.Decks}
}

// Open loads a deck, touches its last-studied timestamp and returns a
// session over its cards. A failed touch is logged and ignored: it must
// never block studying.
func (s *Service) Open(ctx context.Context, deckID string) (*Session, error) {
	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return nil, err
	}

	if err := d.Validate(); err != nil {
		slog.WarnContext(ctx, "review: deck card count mismatch", "deck", d.ID, "error", err)
	}

	sess, err := New(d.Flashcards)
	if err != nil {
		return nil, err
	}

	if err := s.decks.MarkStudied(ctx, d.ID); err != nil {
		slog.WarnContext(ctx, "review: mark studied failed", "deck", d.ID, "error", err)
	}

	return sess, nil
}
