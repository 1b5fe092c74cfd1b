package models_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/reviewsync/internal/models"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestGradeJSON(t *testing.T) {
	data, err := json.Marshal(models.GradeHard)
	require.NoError(t, err)
	assert.JSONEq(t, `"Hard"`, string(data))

	var g models.Grade
	require.NoError(t, json.Unmarshal([]byte(`"easy"`), &g))
	assert.Equal(t, models.GradeEasy, g)

	assert.Error(t, json.Unmarshal([]byte(`"perfect"`), &g))
	assert.Error(t, json.Unmarshal([]byte(`3`), &g))
	_, err = json.Marshal(models.Grade(9))
	assert.Error(t, err)
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(models.StateRelearning)
	require.NoError(t, err)
	assert.JSONEq(t, `"Relearning"`, string(data))

	var s models.State
	require.NoError(t, json.Unmarshal([]byte(`"review"`), &s))
	assert.Equal(t, models.StateReview, s)
	assert.Error(t, json.Unmarshal([]byte(`"Suspended"`), &s))
}

func TestSchedulingRecord_HydrateDefaults(t *testing.T) {
	s := models.SchedulingRecord{}.Hydrate(t0)

	assert.Equal(t, models.NewSchedulingState(t0), s)
	assert.Equal(t, models.StateNew, s.State)
	assert.Equal(t, models.DefaultDifficulty, s.Difficulty)
	assert.Equal(t, t0, s.Due)
}

func TestSchedulingRecord_HydrateClamps(t *testing.T) {
	neg := -4.0
	nan := math.NaN()
	steps := 3
	reps := -1
	state := models.StateReview
	last := t0
	due := t0.Add(-time.Hour)

	s := models.SchedulingRecord{
		Stability:     &neg,
		Difficulty:    &nan,
		ElapsedDays:   &neg,
		LearningSteps: &steps,
		Reps:          &reps,
		State:         &state,
		LastReview:    &last,
		Due:           &due,
	}.Hydrate(t0.Add(-48 * time.Hour))

	assert.Equal(t, 0.0, s.Stability)
	assert.Equal(t, models.DefaultDifficulty, s.Difficulty)
	assert.Equal(t, 0.0, s.ElapsedDays)
	assert.Equal(t, 0, s.Reps)
	assert.Equal(t, 0, s.LearningSteps, "review cards are not on a step")
	assert.Equal(t, t0, s.LastReview)
	assert.Equal(t, t0, s.Due, "due is never before the last review")
}

func TestQueueEntryRecord_IgnoresUnknownFields(t *testing.T) {
	doc := `{
		"card_id": "c1",
		"grade": "Good",
		"graded_at": "2025-03-01T09:00:00Z",
		"state": {"stability": 2.5, "state": "Learning", "future_field": [1, 2]},
		"device": "tablet",
		"schema": 7
	}`

	var r models.QueueEntryRecord
	require.NoError(t, json.Unmarshal([]byte(doc), &r))
	e, ok := r.Hydrate()
	require.True(t, ok)

	assert.Equal(t, "c1", e.CardID)
	assert.Equal(t, models.GradeGood, e.Grade)
	assert.True(t, e.GradedAt.Equal(t0))
	assert.Equal(t, 2.5, e.State.Stability)
	assert.Equal(t, models.StateLearning, e.State.State)
	assert.Equal(t, models.DefaultDifficulty, e.State.Difficulty)
}

func TestQueueEntryRecord_Unusable(t *testing.T) {
	bad := models.Grade(0)
	good := models.GradeGood

	_, ok := models.QueueEntryRecord{Grade: &good}.Hydrate()
	assert.False(t, ok, "missing card id")
	_, ok = models.QueueEntryRecord{CardID: "c1"}.Hydrate()
	assert.False(t, ok, "missing grade")
	_, ok = models.QueueEntryRecord{CardID: "c1", Grade: &bad}.Hydrate()
	assert.False(t, ok, "invalid grade")
}

func TestItemFromEntry_Normalizes(t *testing.T) {
	e := models.ReviewQueueEntry{
		CardID:   "c1",
		Grade:    models.GradeAgain,
		GradedAt: t0,
		State: models.SchedulingState{
			Difficulty: 3,
			Lapses:     -2,
			State:      models.State(9),
			LastReview: t0,
		},
	}

	item := models.ItemFromEntry(e)

	assert.Equal(t, "c1", item.CardID)
	assert.Equal(t, models.MaxDifficulty, item.Difficulty)
	assert.Equal(t, 0, item.Lapses)
	assert.Equal(t, models.StateNew, item.State)
	assert.Equal(t, t0, item.Due)

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"card_id":"c1"`)
	assert.Contains(t, string(data), `"state":"New"`)
}

func TestSchedulingState_Equal(t *testing.T) {
	a := models.SchedulingState{Stability: 3, Difficulty: 5, Reps: 2, State: models.StateReview, LastReview: t0, Due: t0.Add(72 * time.Hour)}

	sameInstant := a
	sameInstant.LastReview = t0.In(time.FixedZone("UTC+2", 2*3600))
	sameInstant.Due = a.Due.Round(0).Local()
	assert.True(t, a.Equal(sameInstant))

	later := a
	later.Due = a.Due.Add(time.Second)
	assert.False(t, a.Equal(later))

	lapsed := a
	lapsed.Lapses = 1
	assert.False(t, a.Equal(lapsed))
}
