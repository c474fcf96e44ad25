package deck

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
	"github.com/snapstudy/snapstudy/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Store is the remote document store for decks, backed by postgres.
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

// CreateRequest carries a new deck. TotalCards is derived from Cards, never
// taken from the caller, so the denormalized count cannot diverge at birth.
type CreateRequest struct {
	Title       string
	Description string
	UserID      string
	Cards       []domain.Flashcard
}

// Create persists a deck and its cards in one transaction.
func (s *Store) Create(ctx context.Context, req CreateRequest) (domain.Deck, error) {
	if len(req.Cards) == 0 {
		return domain.Deck{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("deck: cannot create a deck without flashcards"))
	}

	d := domain.NewDeck(req.Title, req.Description, req.UserID, req.Cards)
	d.CreatedAt = time.Now()

	if err := s.insertDeck(ctx, &d); err != nil {
		return domain.Deck{}, err
	}

	return d, nil
}

func (s *Store) insertDeck(ctx context.Context, d *domain.Deck) (err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate deck ID: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insDeckStmt = `
INSERT INTO decks (deck_id, title, description, user_id, total_cards, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`
		insCardStmt = `
INSERT INTO flashcards (card_id, deck_id, position, front, back)
VALUES ($1, $2, $3, $4, $5);`
	)

	_, err = tx.Exec(ctx, insDeckStmt, id, d.Title, d.Description, d.UserID, d.TotalCards, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deck: %w", err)
	}
	d.ID = id.String()

	for i := range d.Flashcards { // TODO: Batch insert
		if d.Flashcards[i].ID == "" {
			cid, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate card ID: %w", err)
			}
			d.Flashcards[i].ID = cid.String()
		}

		_, err = tx.Exec(ctx, insCardStmt, d.Flashcards[i].ID, id, i, d.Flashcards[i].Front, d.Flashcards[i].Back)
		if err != nil {
			return fmt.Errorf("insert flashcard: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Get loads one deck with its cards in display order.
func (s *Store) Get(ctx context.Context, deckID string) (domain.Deck, error) {
	const stmt = `
SELECT deck_id, title, description, user_id, total_cards, created_at, last_studied
FROM decks WHERE deck_id = $1;`

	var d domain.Deck
	err := s.db.QueryRow(ctx, stmt, deckID).Scan(
		&d.ID, &d.Title, &d.Description, &d.UserID, &d.TotalCards, &d.CreatedAt, &d.LastStudied,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Deck{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("deck not found: %s", deckID))
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("select deck: %w", err)
	}

	d.Flashcards, err = s.loadCards(ctx, d.ID)
	if err != nil {
		return domain.Deck{}, err
	}

	return d, nil
}

// ListByUser returns the user's decks newest-first by creation time.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Deck, error) {
	const stmt = `
SELECT deck_id, title, description, user_id, total_cards, created_at, last_studied
FROM decks
WHERE user_id = $1
ORDER BY created_at DESC;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("select decks: %w", err)
	}

	decks, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Deck, error) {
		var d domain.Deck
		if err := r.Scan(&d.ID, &d.Title, &d.Description, &d.UserID, &d.TotalCards, &d.CreatedAt, &d.LastStudied); err != nil {
			return domain.Deck{}, err
		}
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect decks: %w", err)
	}

	for i := range decks {
		decks[i].Flashcards, err = s.loadCards(ctx, decks[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return decks, nil
}

func (s *Store) loadCards(ctx context.Context, deckID string) ([]domain.Flashcard, error) {
	const stmt = `
SELECT card_id, front, back
FROM flashcards
WHERE deck_id = $1
ORDER BY position;`

	rows, err := s.db.Query(ctx, stmt, deckID)
	if err != nil {
		return nil, fmt.Errorf("select flashcards: %w", err)
	}

	cards, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Flashcard, error) {
		var c domain.Flashcard
		if err := r.Scan(&c.ID, &c.Front, &c.Back); err != nil {
			return domain.Flashcard{}, err
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect flashcards: %w", err)
	}

	return cards, nil
}

// MarkStudied stamps the deck's last-studied time and announces the study.
func (s *Store) MarkStudied(ctx context.Context, deckID string) error {
	const stmt = `UPDATE decks SET last_studied = $2 WHERE deck_id = $1 RETURNING user_id;`

	now := time.Now()

	var userID string
	err := s.db.QueryRow(ctx, stmt, deckID, now).Scan(&userID)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("deck not found: %s", deckID))
	}
	if err != nil {
		return fmt.Errorf("update last studied: %w", err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventDeckStudied{
			DeckID:    deckID,
			UserID:    userID,
			StudiedAt: now,
		})
	}

	return nil
}

// Delete removes a deck and its cards. The user scope prevents deleting
// another user's deck through a guessed ID.
func (s *Store) Delete(ctx context.Context, deckID, userID string) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		delCardsStmt = `
DELETE FROM flashcards
WHERE deck_id IN (SELECT deck_id FROM decks WHERE deck_id = $1 AND user_id = $2);`
		delDeckStmt = `DELETE FROM decks WHERE deck_id = $1 AND user_id = $2;`
	)

	if _, err = tx.Exec(ctx, delCardsStmt, deckID, userID); err != nil {
		return fmt.Errorf("delete flashcards: %w", err)
	}

	tag, err := tx.Exec(ctx, delDeckStmt, deckID, userID)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("deck not found: %s", deckID))
	}

	return tx.Commit(ctx)
}
