package services_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/flashcard"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/services"
	"github.com/vytor/reviewsync/internal/testutil"
	"github.com/vytor/reviewsync/internal/testutil/mocks"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(repo *mocks.MockCardRepository) services.ReviewService {
	svc := services.NewReviewService(repo, flashcard.NewDefaultScheduler())
	services.SetReviewClock(svc, func() time.Time { return t0 })
	return svc
}

func requireAppError(t *testing.T, err error, status int) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func item(id string) models.BatchUpdateItem {
	return models.BatchUpdateItem{
		CardID:          id,
		Grade:           models.GradeGood,
		GradedAt:        t0,
		SchedulingState: testutil.ReviewedState(t0, 3),
	}
}

func TestBatchUpdate_Validation(t *testing.T) {
	tooMany := make([]models.BatchUpdateItem, services.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = item(fmt.Sprintf("c%d", i))
	}
	noGrade := item("a")
	noGrade.Grade = 0
	badState := item("a")
	badState.State = models.State(9)

	tests := []struct {
		name  string
		items []models.BatchUpdateItem
		field string
	}{
		{"empty", nil, "items"},
		{"too many", tooMany, "items"},
		{"missing id", []models.BatchUpdateItem{item(" ")}, "card_id"},
		{"long id", []models.BatchUpdateItem{item(strings.Repeat("a", 200))}, "card_id"},
		{"duplicate id", []models.BatchUpdateItem{item("a"), item("b"), item("a")}, "card_id"},
		{"invalid grade", []models.BatchUpdateItem{noGrade}, "grade"},
		{"invalid state", []models.BatchUpdateItem{badState}, "state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCardRepository)
			_, err := newService(repo).BatchUpdate(context.Background(), models.BatchUpdateRequest{Items: tt.items})

			appErr := requireAppError(t, err, 400)
			assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
			assert.Contains(t, appErr.Message, tt.field)
			repo.AssertNotCalled(t, "ApplyBatch", mock.Anything, mock.Anything)
		})
	}
}

func TestBatchUpdate_Applies(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	items := []models.BatchUpdateItem{item("a"), item("gone")}
	want := models.BatchUpdateResult{Modified: 1, UpdatedIDs: []string{"a"}, MissingIDs: []string{"gone"}}
	repo.On("ApplyBatch", mock.Anything, items).Return(want, nil)

	got, err := newService(repo).BatchUpdate(context.Background(), models.BatchUpdateRequest{Items: items})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertExpectations(t)
}

func TestBatchUpdate_RepositoryError(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	repo.On("ApplyBatch", mock.Anything, mock.Anything).Return(models.BatchUpdateResult{}, stderrors.New("database is locked"))

	_, err := newService(repo).BatchUpdate(context.Background(), models.BatchUpdateRequest{Items: []models.BatchUpdateItem{item("a")}})

	requireAppError(t, err, 500)
}

func TestReviewCard_SchedulesAndStores(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	card := &models.Card{ID: "c1", Scheduling: models.NewSchedulingState(t0), CreatedAt: t0, UpdatedAt: t0}
	repo.On("Get", mock.Anything, "c1").Return(card, nil)
	repo.On("ApplyReview", mock.Anything, "c1",
		mock.MatchedBy(func(s models.SchedulingState) bool {
			return s.State == models.StateLearning && s.Reps == 1 && s.Due.After(t0)
		}),
		mock.MatchedBy(func(h models.ReviewHistory) bool {
			return h.Grade == models.GradeGood && h.TimeSeconds == 6 && h.ReviewedAt.Equal(t0)
		}),
	).Return(true, nil)

	// "easy" on a New card counts as Good
	got, err := newService(repo).ReviewCard(context.Background(), "c1", "easy", 6)

	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, got.Scheduling.State)
	assert.Equal(t, 1, got.ReviewCount)
	repo.AssertExpectations(t)
}

func TestReviewCard_Errors(t *testing.T) {
	t.Run("unknown card", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		repo.On("Get", mock.Anything, "nope").Return(nil, nil)
		_, err := newService(repo).ReviewCard(context.Background(), "nope", "good", 0)
		requireAppError(t, err, 404)
	})
	t.Run("unknown response", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		repo.On("Get", mock.Anything, "c1").Return(&models.Card{ID: "c1", Scheduling: models.NewSchedulingState(t0)}, nil)
		_, err := newService(repo).ReviewCard(context.Background(), "c1", "meh", 0)
		requireAppError(t, err, 400)
		repo.AssertNotCalled(t, "ApplyReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
	t.Run("negative time", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		_, err := newService(repo).ReviewCard(context.Background(), "c1", "good", -1)
		requireAppError(t, err, 400)
	})
	t.Run("deleted while reviewing", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		repo.On("Get", mock.Anything, "c1").Return(&models.Card{ID: "c1", Scheduling: models.NewSchedulingState(t0)}, nil)
		repo.On("ApplyReview", mock.Anything, "c1", mock.Anything, mock.Anything).Return(false, nil)
		_, err := newService(repo).ReviewCard(context.Background(), "c1", "good", 0)
		requireAppError(t, err, 404)
	})
}

func TestPreviewCard(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	repo.On("Get", mock.Anything, "c1").Return(&models.Card{ID: "c1", Scheduling: testutil.ReviewedState(t0.Add(-10*24*time.Hour), 10)}, nil)

	preview, err := newService(repo).PreviewCard(context.Background(), "c1")

	require.NoError(t, err)
	require.Len(t, preview, 4)
	assert.Equal(t, models.StateRelearning, preview["Again"].State)
	assert.True(t, preview["Easy"].Due.After(preview["Good"].Due))
}

func TestRegisterCard(t *testing.T) {
	t.Run("generated id", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		repo.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
		repo.On("Insert", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
			return c.ID != "" && c.Scheduling.State == models.StateNew && c.CreatedAt.Equal(t0)
		})).Return(nil)

		card, err := newService(repo).RegisterCard(context.Background(), "")

		require.NoError(t, err)
		assert.Len(t, card.ID, 36)
		repo.AssertExpectations(t)
	})
	t.Run("conflict", func(t *testing.T) {
		repo := new(mocks.MockCardRepository)
		repo.On("Get", mock.Anything, "c1").Return(&models.Card{ID: "c1"}, nil)

		_, err := newService(repo).RegisterCard(context.Background(), "c1")

		appErr := requireAppError(t, err, 409)
		assert.Equal(t, errors.ErrCodeConflict, appErr.Code)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})
}

func TestDeleteCard(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	repo.On("Delete", mock.Anything, "c1").Return(true, nil)
	repo.On("Delete", mock.Anything, "c2").Return(false, nil)
	svc := newService(repo)

	assert.NoError(t, svc.DeleteCard(context.Background(), "c1"))
	requireAppError(t, svc.DeleteCard(context.Background(), "c2"), 404)
}

func TestDueCards_PageBounds(t *testing.T) {
	tests := []struct {
		name                string
		limit, offset       int
		wantLimit, wantOffs int
	}{
		{"defaults", 0, -5, services.DefaultPageSize, 0},
		{"capped", 1000, 10, services.MaxPageSize, 10},
		{"as given", 5, 5, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCardRepository)
			repo.On("DueCards", mock.Anything, t0, tt.wantLimit, tt.wantOffs).Return([]models.DueCard{{ID: "c1"}}, 7, nil)

			page, err := newService(repo).DueCards(context.Background(), tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.wantOffs, page.Offset)
			assert.Equal(t, 7, page.Total)
			repo.AssertExpectations(t)
		})
	}
}

func TestStatsService(t *testing.T) {
	repo := new(mocks.MockStatsRepository)
	repo.On("CardStats", mock.Anything, mock.Anything).Return(&models.CardStats{TotalCards: 3}, nil).Once()
	repo.On("CardStats", mock.Anything, mock.Anything).Return(nil, stderrors.New("boom")).Once()
	svc := services.NewStatsService(repo, services.WithParametersVersion(flashcard.DefaultParametersVersion))

	stats, err := svc.GetCardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, "fsrs-6/default", stats.ParametersVersion)

	_, err = svc.GetCardStats(context.Background())
	requireAppError(t, err, 500)
}
