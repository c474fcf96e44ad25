package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/snapstudy/snapstudy/internal/api"
	"github.com/snapstudy/snapstudy/internal/deck"
	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
	"github.com/snapstudy/snapstudy/internal/event"
	"github.com/snapstudy/snapstudy/internal/progress"
)

const testSecret = "test-secret"

type fakeDecks struct {
	created  []deck.CreateRequest
	decks    []domain.Deck
	studied  []string
	notFound bool
}

func (f *fakeDecks) Create(_ context.Context, req deck.CreateRequest) (domain.Deck, error) {
	f.created = append(f.created, req)
	d := domain.NewDeck(req.Title, req.Description, req.UserID, req.Cards)
	d.ID = "d1"
	d.CreatedAt = time.Now()
	return d, nil
}

func (f *fakeDecks) ListByUser(_ context.Context, userID string) ([]domain.Deck, error) {
	return f.decks, nil
}

func (f *fakeDecks) MarkStudied(_ context.Context, deckID string) error {
	if f.notFound {
		return errors.New(errors.CodeNotFound)
	}
	f.studied = append(f.studied, deckID)
	return nil
}

func (f *fakeDecks) Delete(_ context.Context, deckID, userID string) error {
	if f.notFound {
		return errors.New(errors.CodeNotFound)
	}
	return nil
}

type fakeResults struct {
	saved []domain.QuizResult
	users []string
}

func (f *fakeResults) Save(_ context.Context, userID string, r domain.QuizResult) error {
	f.users = append(f.users, userID)
	f.saved = append(f.saved, r)
	return nil
}

type fakeProgress struct {
	stats    domain.StudyStats
	activity []progress.Activity
}

func (f *fakeProgress) Stats(_ context.Context, userID string) (domain.StudyStats, error) {
	return f.stats, nil
}

func (f *fakeProgress) RecentActivity(_ context.Context, userID string, n int) ([]progress.Activity, error) {
	return f.activity, nil
}

type fakeGenerator struct {
	cards []domain.Flashcard
	err   error
}

func (f *fakeGenerator) FromImage(_ context.Context, _ string) ([]domain.Flashcard, error) {
	return f.cards, f.err
}

type fixture struct {
	router    *gin.Engine
	decks     *fakeDecks
	results   *fakeResults
	progress  *fakeProgress
	generator *fakeGenerator
	redis     redis.UniversalClient
}

func makeAPI(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{rs.Addr()}})
	t.Cleanup(func() { rc.Close() })

	f := &fixture{
		router:    gin.New(),
		decks:     &fakeDecks{},
		results:   &fakeResults{},
		progress:  &fakeProgress{},
		generator: &fakeGenerator{},
		redis:     rc,
	}

	api.New(api.Config{
		Router:       f.router,
		EventBus:     event.NewBus(),
		Decks:        f.decks,
		Results:      f.results,
		Progress:     f.progress,
		Generator:    f.generator,
		Redis:        rc,
		PubsubPrefix: "test",
		JWTSecret:    testSecret,
	})

	return f
}

func bearer(t *testing.T, sub string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, f *fixture, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	f := makeAPI(t)

	t.Run("missing token is rejected", func(t *testing.T) {
		w := do(t, f, http.MethodGet, "/v1/decks", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		w := do(t, f, http.MethodGet, "/v1/decks", "Bearer not.a.jwt", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token passes", func(t *testing.T) {
		w := do(t, f, http.MethodGet, "/v1/decks", bearer(t, "u1"), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGenerateFlashcards(t *testing.T) {
	t.Run("returns generated cards", func(t *testing.T) {
		f := makeAPI(t)
		f.generator.cards = []domain.Flashcard{
			{ID: "c1", Front: "q1", Back: "a1"},
			{ID: "c2", Front: "q2", Back: "a2"},
		}

		w := do(t, f, http.MethodPost, "/v1/generate", bearer(t, "u1"),
			api.GenerateRequest{ImageBase64: "aGVsbG8="})
		require.Equal(t, http.StatusOK, w.Code)

		var resp api.GenerateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Flashcards, 2)
		require.Equal(t, "q1", resp.Flashcards[0].Front)
	})

	t.Run("generation failure maps to bad gateway", func(t *testing.T) {
		f := makeAPI(t)
		f.generator.err = errors.New(errors.CodeUnavailable,
			errors.WithMessagef("generate: could not create flashcards from this image"))

		w := do(t, f, http.MethodPost, "/v1/generate", bearer(t, "u1"),
			api.GenerateRequest{ImageBase64: "aGVsbG8="})
		require.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("missing image is a bad request", func(t *testing.T) {
		f := makeAPI(t)

		w := do(t, f, http.MethodPost, "/v1/generate", bearer(t, "u1"), map[string]string{})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateDeck(t *testing.T) {
	f := makeAPI(t)

	w := do(t, f, http.MethodPost, "/v1/decks", bearer(t, "u1"), api.CreateDeckRequest{
		Title: "biology",
		Flashcards: []api.Flashcard{
			{Front: "q1", Back: "a1"},
			{Front: "q2", Back: "a2"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.decks.created, 1)
	require.Equal(t, "u1", f.decks.created[0].UserID, "deck owner comes from the token, not the body")

	var resp api.Deck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "d1", resp.ID)
	require.Equal(t, 2, resp.TotalCards)
}

func TestMarkDeckStudied(t *testing.T) {
	t.Run("touches the deck", func(t *testing.T) {
		f := makeAPI(t)

		w := do(t, f, http.MethodPost, "/v1/decks/d1/studied", bearer(t, "u1"), nil)
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, []string{"d1"}, f.decks.studied)
	})

	t.Run("unknown deck is a 404", func(t *testing.T) {
		f := makeAPI(t)
		f.decks.notFound = true

		w := do(t, f, http.MethodPost, "/v1/decks/nope/studied", bearer(t, "u1"), nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSaveQuizResult(t *testing.T) {
	f := makeAPI(t)

	w := do(t, f, http.MethodPost, "/v1/quiz/results", bearer(t, "u1"), api.SaveQuizResultRequest{
		DeckID:         "d1",
		Score:          30,
		TotalQuestions: 5,
		MaxScore:       50,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Equal(t, []string{"u1"}, f.results.users)
	require.Len(t, f.results.saved, 1)
	require.Equal(t, 30, f.results.saved[0].Score)
}

func TestGetProgress(t *testing.T) {
	f := makeAPI(t)
	f.progress.stats = domain.StudyStats{
		UserID:          "u1",
		TotalDecks:      3,
		TotalCards:      20,
		StudiedDecks:    2,
		QuizzesTaken:    5,
		AverageAccuracy: 84.0,
	}
	f.progress.activity = []progress.Activity{
		{DeckID: "d2", StudiedAt: time.Now()},
	}

	w := do(t, f, http.MethodGet, "/v1/progress", bearer(t, "u1"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ProgressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.TotalDecks)
	require.Equal(t, 84.0, resp.AverageAccuracy)
	require.Len(t, resp.RecentActivity, 1)
	require.Equal(t, "d2", resp.RecentActivity[0].DeckID)
}

func TestPublishQuizCompleted(t *testing.T) {
	f := makeAPI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := f.redis.Subscribe(ctx, "test:user:u1")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	eb := event.NewBus()
	a := api.New(api.Config{
		Router:       gin.New(),
		EventBus:     eb,
		Decks:        f.decks,
		Results:      f.results,
		Progress:     f.progress,
		Generator:    f.generator,
		Redis:        f.redis,
		PubsubPrefix: "test",
		JWTSecret:    testSecret,
	})

	err = a.PublishQuizCompleted(ctx, domain.EventQuizCompleted{
		UserID: "u1",
		Result: domain.QuizResult{
			DeckID:         "d1",
			Score:          40,
			TotalQuestions: 4,
			MaxScore:       40,
			CompletedAt:    time.Now(),
		},
	})
	require.NoError(t, err)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string            `json:"event"`
		Data  api.QuizCompleted `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	require.Equal(t, domain.EventNameQuizCompleted, n.Event)
	require.Equal(t, api.QuizCompleted{
		DeckID:     "d1",
		Score:      40,
		MaxScore:   40,
		Percentage: 100,
	}, n.Data)
}
