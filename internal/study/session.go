package study

import (
	"sync"
	"time"

	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/queue"
)

// Session walks a learner through due cards. It keeps two views of each
// card's scheduling state: the optimistic view, updated as soon as a card is
// graded, and the confirmed view, updated only when the remote store
// acknowledges a flush.
type Session struct {
	mu        sync.Mutex
	scheduler *flashcard.Scheduler
	queue     *queue.ReviewQueue
	cursor    *Cursor
	cards     []models.DueCard

	optimistic map[string]models.SchedulingState
	confirmed  map[string]models.SchedulingState
	deleted    map[string]bool

	now func() time.Time
	log *logger.Logger
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(scheduler *flashcard.Scheduler, q *queue.ReviewQueue, cards []models.DueCard, opts ...SessionOption) *Session {
	s := &Session{
		scheduler:  scheduler,
		queue:      q,
		cursor:     NewCursor(len(cards)),
		cards:      append([]models.DueCard(nil), cards...),
		optimistic: make(map[string]models.SchedulingState),
		confirmed:  make(map[string]models.SchedulingState),
		deleted:    make(map[string]bool),
		now:        time.Now,
		log:        logger.Default().WithPrefix("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range cards {
		s.confirmed[c.ID] = c.Scheduling
	}
	return s
}

// Current returns the card under the cursor with its optimistic state.
func (s *Session) Current() (models.DueCard, models.SchedulingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.Len() == 0 {
		return models.DueCard{}, models.SchedulingState{}, ErrEndOfDeck
	}
	card := s.cards[s.cursor.Index()]
	state, _ := s.stateOf(card)
	return card, state, nil
}

// Grade maps a UI response onto a grade for the current card and applies it.
func (s *Session) Grade(response string) (models.SchedulingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor.Len() == 0 {
		return models.SchedulingState{}, ErrEndOfDeck
	}
	state, _ := s.stateOf(s.cards[s.cursor.Index()])
	g, err := flashcard.GradeForResponse(response, state.State)
	if err != nil {
		return models.SchedulingState{}, err
	}
	return s.grade(g)
}

// GradeWith applies g to the current card.
func (s *Session) GradeWith(g models.Grade) (models.SchedulingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grade(g)
}

func (s *Session) grade(g models.Grade) (models.SchedulingState, error) {
	if !g.IsValid() {
		return models.SchedulingState{}, flashcard.ErrUnknownResponse
	}
	if s.cursor.Len() == 0 {
		return models.SchedulingState{}, ErrEndOfDeck
	}
	if !s.cursor.AtFrontier() {
		return models.SchedulingState{}, ErrRevisiting
	}

	card := s.cards[s.cursor.Index()]
	now := s.now()
	prev, ok := s.stateOf(card)
	var next models.SchedulingState
	if ok {
		next = s.scheduler.Schedule(&prev, g, now)
	} else {
		next = s.scheduler.Schedule(nil, g, now)
	}

	s.queue.Enqueue(models.ReviewQueueEntry{
		CardID:   card.ID,
		Grade:    g,
		GradedAt: now,
		State:    next,
	})
	s.optimistic[card.ID] = next
	if err := s.cursor.MarkGraded(); err != nil {
		return models.SchedulingState{}, err
	}

	s.log.WithFields(map[string]any{
		"card_id": card.ID,
		"grade":   g,
		"state":   next.State,
		"due":     next.Due.Format(time.RFC3339),
	}).Debug("graded card")
	return next, nil
}

func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Advance()
}

func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Retreat()
}

func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.JumpTo(index)
}

// AddCards appends another page of due cards. Cards already in the session
// are skipped.
func (s *Session) AddCards(cards []models.DueCard) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.cards))
	for _, c := range s.cards {
		seen[c.ID] = true
	}
	added := 0
	for _, c := range cards {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		s.cards = append(s.cards, c)
		if _, ok := s.confirmed[c.ID]; !ok {
			s.confirmed[c.ID] = c.Scheduling
		}
		added++
	}
	s.cursor.Extend(added)
	return added
}

// Position returns the current index, the frontier index and the number of
// cards loaded.
func (s *Session) Position() (current, highest, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Index(), s.cursor.Highest(), s.cursor.Len()
}

func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Done()
}

func (s *Session) Optimistic(cardID string) (models.SchedulingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.optimistic[cardID]
	return st, ok
}

func (s *Session) Confirmed(cardID string) (models.SchedulingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.confirmed[cardID]
	return st, ok
}

// Deleted reports whether the remote store no longer knows cardID.
func (s *Session) Deleted(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted[cardID]
}

// OnCommit updates the confirmed view from a successful flush. The
// optimistic view is only overwritten when it diverges from a confirmed
// state and no newer grade for the card is still queued.
func (s *Session) OnCommit(confirmed []models.ReviewQueueEntry, dropped []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range confirmed {
		s.confirmed[e.CardID] = e.State
		if _, pending := s.queue.Get(e.CardID); pending {
			continue
		}
		if opt, ok := s.optimistic[e.CardID]; ok && !opt.Equal(e.State) {
			s.log.WithField("card_id", e.CardID).Warn("optimistic state diverged from confirmed state, correcting")
			s.optimistic[e.CardID] = e.State
		}
	}
	for _, id := range dropped {
		s.deleted[id] = true
		delete(s.confirmed, id)
	}
}

// stateOf returns the freshest known state of card: the optimistic view,
// then a pending queue entry from an earlier session, then the state the
// card was loaded with.
func (s *Session) stateOf(card models.DueCard) (models.SchedulingState, bool) {
	if st, ok := s.optimistic[card.ID]; ok {
		return st, true
	}
	if e, ok := s.queue.Get(card.ID); ok {
		return e.State, true
	}
	if card.Scheduling.LastReview.IsZero() {
		return models.NewSchedulingState(s.now()), false
	}
	return card.Scheduling, true
}
