package domain

import "time"

const (
	EventNameDeckStudied   = "deck.studied"
	EventNameQuizCompleted = "quiz.completed"
)

type EventDeckStudied struct {
	DeckID    string
	UserID    string
	StudiedAt time.Time
}

func (EventDeckStudied) Name() string { return EventNameDeckStudied }

type EventQuizCompleted struct {
	UserID string
	Result QuizResult
}

func (EventQuizCompleted) Name() string { return EventNameQuizCompleted }
