package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/repository"
)

const (
	MaxBatchSize    = models.MaxBatchSize
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxCardIDLength = 128
)

// ReviewService handles card scheduling business logic
type ReviewService interface {
	BatchUpdate(ctx context.Context, req models.BatchUpdateRequest) (models.BatchUpdateResult, error)
	ReviewCard(ctx context.Context, id, response string, timeSeconds float64) (*models.Card, error)
	PreviewCard(ctx context.Context, id string) (map[string]models.SchedulingState, error)
	RegisterCard(ctx context.Context, id string) (*models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	DueCards(ctx context.Context, limit, offset int) (*models.DueCardsPage, error)
	ReviewHistory(ctx context.Context, id string, limit int) ([]models.ReviewHistory, error)
}

type reviewService struct {
	cards     repository.CardRepository
	scheduler *flashcard.Scheduler
	now       func() time.Time
}

// NewReviewService creates a new ReviewService
func NewReviewService(cards repository.CardRepository, scheduler *flashcard.Scheduler) ReviewService {
	return &reviewService{cards: cards, scheduler: scheduler, now: time.Now}
}

func (s *reviewService) BatchUpdate(ctx context.Context, req models.BatchUpdateRequest) (models.BatchUpdateResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("applying batch update: items=%d", len(req.Items))

	if err := validateBatch(req.Items); err != nil {
		log.Warn("rejected batch update: %v", err)
		return models.BatchUpdateResult{}, err
	}

	res, err := s.cards.ApplyBatch(ctx, req.Items)
	if err != nil {
		log.Error("failed to apply batch update: %v", err)
		return models.BatchUpdateResult{}, errors.NewInternalError(err)
	}

	log.Info("batch update applied: items=%d, modified=%d, missing=%d", len(req.Items), res.Modified, len(res.MissingIDs))
	return res, nil
}

func validateBatch(items []models.BatchUpdateItem) error {
	if len(items) == 0 {
		return errors.NewValidationError("items", "must not be empty")
	}
	if len(items) > MaxBatchSize {
		return errors.NewValidationError("items", "too many items in one batch")
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := validateCardID(it.CardID); err != nil {
			return err
		}
		if _, dup := seen[it.CardID]; dup {
			return errors.NewValidationError("card_id", "duplicate id "+it.CardID)
		}
		seen[it.CardID] = struct{}{}
		if !it.Grade.IsValid() {
			return errors.NewValidationError("grade", "must be one of Again, Hard, Good, Easy")
		}
		if !it.State.IsValid() {
			return errors.NewValidationError("state", "must be one of New, Learning, Review, Relearning")
		}
	}
	return nil
}

func validateCardID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.NewValidationError("card_id", "is required")
	case len(id) > maxCardIDLength:
		return errors.NewValidationError("card_id", "is too long")
	}
	return nil
}

func (s *reviewService) ReviewCard(ctx context.Context, id, response string, timeSeconds float64) (*models.Card, error) {
	log := logger.FromContext(ctx)
	log.Debug("reviewing card: id=%s, response=%s", id, response)

	if timeSeconds < 0 {
		return nil, errors.NewValidationError("time_seconds", "must not be negative")
	}
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}

	grade, err := flashcard.GradeForResponse(response, card.Scheduling.State)
	if err != nil {
		return nil, errors.NewValidationError("response", err.Error())
	}

	now := s.now()
	next := s.scheduler.Schedule(&card.Scheduling, grade, now)
	log.Debug("scheduled card: grade=%s, state=%s, due=%s", grade, next.State, next.Due.Format(time.RFC3339))

	found, err := s.cards.ApplyReview(ctx, id, next, models.ReviewHistory{
		Grade:       grade,
		TimeSeconds: timeSeconds,
		ReviewedAt:  now,
	})
	if err != nil {
		log.Error("failed to store review: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if !found {
		return nil, errors.NewNotFoundError("card", id)
	}

	card.Scheduling = next
	card.ReviewCount++
	card.UpdatedAt = now
	return card, nil
}

func (s *reviewService) PreviewCard(ctx context.Context, id string) (map[string]models.SchedulingState, error) {
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.SchedulingState, len(models.Grades))
	for g, st := range s.scheduler.Preview(&card.Scheduling, s.now()) {
		out[g.String()] = st
	}
	return out, nil
}

func (s *reviewService) RegisterCard(ctx context.Context, id string) (*models.Card, error) {
	log := logger.FromContext(ctx)

	if id == "" {
		id = uuid.NewString()
	} else if err := validateCardID(id); err != nil {
		return nil, err
	}
	log.Debug("registering card: id=%s", id)

	existing, err := s.cards.Get(ctx, id)
	if err != nil {
		log.Error("failed to look up card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("card", id)
	}

	now := s.now()
	card := models.Card{
		ID:         id,
		Scheduling: models.NewSchedulingState(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.cards.Insert(ctx, card); err != nil {
		log.Error("failed to insert card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("registered card: id=%s", id)
	return &card, nil
}

func (s *reviewService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting card: id=%s", id)

	card, err := s.cards.Get(ctx, id)
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", id)
	}
	return card, nil
}

func (s *reviewService) DeleteCard(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting card: id=%s", id)

	deleted, err := s.cards.Delete(ctx, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
		return errors.NewInternalError(err)
	}
	if !deleted {
		return errors.NewNotFoundError("card", id)
	}
	log.Info("deleted card: id=%s", id)
	return nil
}

func (s *reviewService) DueCards(ctx context.Context, limit, offset int) (*models.DueCardsPage, error) {
	log := logger.FromContext(ctx)

	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)
	log.Debug("getting due cards: limit=%d, offset=%d", limit, offset)

	cards, total, err := s.cards.DueCards(ctx, s.now(), limit, offset)
	if err != nil {
		log.Error("failed to get due cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return &models.DueCardsPage{Cards: cards, Limit: limit, Offset: offset, Total: total}, nil
}

func (s *reviewService) ReviewHistory(ctx context.Context, id string, limit int) ([]models.ReviewHistory, error) {
	if _, err := s.GetCard(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.cards.ReviewHistory(ctx, id, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get review history: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return history, nil
}

