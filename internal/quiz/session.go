package quiz

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
)

const (
	// MinCards is the smallest deck a quiz can run on: one correct answer
	// plus three distractors.
	MinCards = 4

	// PointsPerQuestion is the flat award for a correct answer. There is
	// no partial credit, penalty or time bonus.
	PointsPerQuestion = 10

	// DefaultRevealDelay is how long the correct answer stays on screen
	// before the session advances to the next question.
	DefaultRevealDelay = 1500 * time.Millisecond

	maxDistractors = 3
)

var (
	// ErrTooFewCards rejects decks that cannot fill a multiple-choice set.
	ErrTooFewCards = errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("quiz: deck needs at least %d flashcards", MinCards))

	// ErrAlreadyAnswered means a submission arrived during the reveal
	// window. The UI disables input after the first tap, so hitting this
	// indicates a caller bug rather than a user mistake.
	ErrAlreadyAnswered = errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("quiz: answer already submitted for this question"))

	// ErrCompleted means the quiz has finished and accepts no more answers.
	ErrCompleted = errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("quiz: session already completed"))

	// ErrNotCompleted guards the final report until the last question is done.
	ErrNotCompleted = errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("quiz: session not completed yet"))
)

// Timer is a cancelable handle for the scheduled auto-advance.
type Timer interface {
	Stop() bool
}

// NewTimerFunc schedules f to run once after d. Swappable in tests.
type NewTimerFunc func(d time.Duration, f func()) Timer

func defaultNewTimer(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Config struct {
	// RevealDelay overrides DefaultRevealDelay when positive.
	RevealDelay time.Duration
	// Rand overrides the shuffle source, for deterministic tests.
	Rand *rand.Rand
	// NewTimerFunc overrides the auto-advance scheduler, for tests.
	NewTimerFunc NewTimerFunc
}

// Session runs one multiple-choice quiz over a deck. Questions come in a
// uniformly shuffled order; each is answered exactly once, revealed for a
// fixed window, then the session advances on its own. A mutex guards the
// state because the scheduled advance fires on a timer goroutine.
type Session struct {
	mu sync.Mutex

	pool  []domain.Flashcard // original deck order, distractor source
	order []domain.Flashcard // shuffled question order

	current  int
	score    int
	selected string
	answered bool
	revealed bool
	done     bool
	closed   bool

	rng      *rand.Rand
	delay    time.Duration
	newTimer NewTimerFunc
	timer    Timer
}

// New starts a quiz session over the deck's cards.
func New(cards []domain.Flashcard, c Config) (*Session, error) {
	if len(cards) < MinCards {
		return nil, ErrTooFewCards
	}

	s := &Session{
		pool:     cards,
		current:  0,
		delay:    c.RevealDelay,
		rng:      c.Rand,
		newTimer: c.NewTimerFunc,
	}

	if s.delay <= 0 {
		s.delay = DefaultRevealDelay
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.newTimer == nil {
		s.newTimer = defaultNewTimer
	}

	s.order = make([]domain.Flashcard, len(cards))
	copy(s.order, cards)
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	return s, nil
}

// Question returns the card currently being asked.
func (s *Session) Question() domain.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order[s.current]
}

// Position returns the 1-based question number and the total question count.
func (s *Session) Position() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current + 1, len(s.order)
}

// Score returns the points accumulated so far.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.score
}

// Options synthesizes the answer choices for the current question: up to
// three distractors sampled from the other cards' answers plus the correct
// answer, shuffled together. Cards whose answer text equals the correct
// answer are excluded from the pool, but equal distractor texts from
// different cards are kept as-is. With fewer than three eligible
// distractors the set is simply smaller; it is never padded.
func (s *Session) Options() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	correct := s.order[s.current].Back

	distractors := make([]string, 0, len(s.pool))
	for _, card := range s.pool {
		if card.Back != correct {
			distractors = append(distractors, card.Back)
		}
	}

	// A shuffled prefix is a uniform random subset.
	s.rng.Shuffle(len(distractors), func(i, j int) {
		distractors[i], distractors[j] = distractors[j], distractors[i]
	})
	if len(distractors) > maxDistractors {
		distractors = distractors[:maxDistractors]
	}

	options := append(distractors, correct)
	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return options
}

// SubmitAnswer grades the choice against the current question and enters
// the reveal phase. One shot per question: a second submission during the
// reveal window fails with ErrAlreadyAnswered. The advance to the next
// question (or completion) is scheduled after the reveal delay.
func (s *Session) SubmitAnswer(choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ErrCompleted
	}
	if s.revealed {
		return ErrAlreadyAnswered
	}

	s.selected = choice
	s.answered = true
	s.revealed = true

	if choice == s.order[s.current].Back {
		s.score += PointsPerQuestion
	}

	s.timer = s.newTimer(s.delay, s.advance)
	return nil
}

// advance is the scheduled transition out of the reveal phase.
func (s *Session) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The timer may fire after Close tore the session down.
	if s.closed || !s.revealed || s.done {
		return
	}

	s.timer = nil

	if s.current+1 < len(s.order) {
		s.current++
		s.selected = ""
		s.answered = false
		s.revealed = false
		return
	}

	s.done = true
}

// Selected returns the submitted answer for the current question, if any.
func (s *Session) Selected() (choice string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selected, s.answered
}

// Revealed reports whether the session is in the reveal window, during
// which input is locked.
func (s *Session) Revealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revealed
}

// Completed reports whether the last question has been answered and revealed.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}

// Close cancels any pending scheduled advance and freezes the session.
// Safe to call at any point, including after completion.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
