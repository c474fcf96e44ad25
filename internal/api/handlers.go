package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snapstudy/snapstudy/internal/auth"
	"github.com/snapstudy/snapstudy/internal/deck"
	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
)

const recentActivityLimit = 5

type (
	Flashcard struct {
		ID    string `json:"id,omitempty"`
		Front string `json:"front" binding:"required"`
		Back  string `json:"back" binding:"required"`
	}

	Deck struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Flashcards  []Flashcard `json:"flashcards"`
		TotalCards  int         `json:"total_cards"`
		CreatedAt   time.Time   `json:"created_at"`
		LastStudied *time.Time  `json:"last_studied,omitempty"`
	}

	GenerateRequest struct {
		ImageBase64 string `json:"image_base64" binding:"required"`
	}

	GenerateResponse struct {
		Flashcards []Flashcard `json:"flashcards"`
	}

	CreateDeckRequest struct {
		Title       string      `json:"title" binding:"required"`
		Description string      `json:"description"`
		Flashcards  []Flashcard `json:"flashcards" binding:"required"`
	}

	ListDecksResponse struct {
		Decks []Deck `json:"decks"`
	}

	SaveQuizResultRequest struct {
		DeckID         string    `json:"deck_id" binding:"required"`
		Score          int       `json:"score"`
		TotalQuestions int       `json:"total_questions" binding:"required"`
		MaxScore       int       `json:"max_score" binding:"required"`
		CompletedAt    time.Time `json:"completed_at"`
	}

	ProgressResponse struct {
		TotalDecks      int        `json:"total_decks"`
		TotalCards      int        `json:"total_cards"`
		StudiedDecks    int        `json:"studied_decks"`
		QuizzesTaken    int        `json:"quizzes_taken"`
		AverageAccuracy float64    `json:"average_accuracy"`
		RecentActivity  []Activity `json:"recent_activity"`
	}

	Activity struct {
		DeckID    string    `json:"deck_id"`
		StudiedAt time.Time `json:"studied_at"`
	}
)

func (a *API) GenerateFlashcards(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	cards, err := a.generator.FromImage(c.Request.Context(), req.ImageBase64)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := GenerateResponse{Flashcards: make([]Flashcard, 0, len(cards))}
	for _, card := range cards {
		resp.Flashcards = append(resp.Flashcards, Flashcard{ID: card.ID, Front: card.Front, Back: card.Back})
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) CreateDeck(c *gin.Context) {
	var req CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	cards := make([]domain.Flashcard, 0, len(req.Flashcards))
	for _, f := range req.Flashcards {
		cards = append(cards, domain.Flashcard{ID: f.ID, Front: f.Front, Back: f.Back})
	}

	d, err := a.decks.Create(c.Request.Context(), deck.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		UserID:      auth.UserID(c),
		Cards:       cards,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	decksCreated.Inc()
	c.JSON(http.StatusCreated, toDeck(d))
}

func (a *API) ListDecks(c *gin.Context) {
	decks, err := a.decks.ListByUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ListDecksResponse{Decks: make([]Deck, 0, len(decks))}
	for _, d := range decks {
		resp.Decks = append(resp.Decks, toDeck(d))
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) DeleteDeck(c *gin.Context) {
	if err := a.decks.Delete(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) MarkDeckStudied(c *gin.Context) {
	if err := a.decks.MarkStudied(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) SaveQuizResult(c *gin.Context) {
	var req SaveQuizResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	err := a.results.Save(c.Request.Context(), auth.UserID(c), domain.QuizResult{
		DeckID:         req.DeckID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		MaxScore:       req.MaxScore,
		CompletedAt:    req.CompletedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	quizzesCompleted.Inc()
	c.Status(http.StatusCreated)
}

func (a *API) GetProgress(c *gin.Context) {
	userID := auth.UserID(c)

	stats, err := a.progress.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	activity, err := a.progress.RecentActivity(c.Request.Context(), userID, recentActivityLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ProgressResponse{
		TotalDecks:      stats.TotalDecks,
		TotalCards:      stats.TotalCards,
		StudiedDecks:    stats.StudiedDecks,
		QuizzesTaken:    stats.QuizzesTaken,
		AverageAccuracy: stats.AverageAccuracy,
		RecentActivity:  make([]Activity, 0, len(activity)),
	}
	for _, act := range activity {
		resp.RecentActivity = append(resp.RecentActivity, Activity{
			DeckID:    act.DeckID,
			StudiedAt: act.StudiedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func toDeck(d domain.Deck) Deck {
	out := Deck{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Flashcards:  make([]Flashcard, 0, len(d.Flashcards)),
		TotalCards:  d.TotalCards,
		CreatedAt:   d.CreatedAt,
		LastStudied: d.LastStudied,
	}
	for _, f := range d.Flashcards {
		out.Flashcards = append(out.Flashcards, Flashcard{ID: f.ID, Front: f.Front, Back: f.Back})
	}
	return out
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), e)
}
