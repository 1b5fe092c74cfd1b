package models

import (
	"math"
	"time"
)

// SchedulingRecord is the loosely-typed form of a SchedulingState as found at
// storage boundaries: older clients and partially written documents may omit
// any field. Hydrate turns it into a complete SchedulingState.
type SchedulingRecord struct {
	Stability     *float64   `json:"stability,omitempty"`
	Difficulty    *float64   `json:"difficulty,omitempty"`
	ElapsedDays   *float64   `json:"elapsed_days,omitempty"`
	ScheduledDays *float64   `json:"scheduled_days,omitempty"`
	LearningSteps *int       `json:"learning_steps,omitempty"`
	Reps          *int       `json:"reps,omitempty"`
	Lapses        *int       `json:"lapses,omitempty"`
	State         *State     `json:"state,omitempty"`
	LastReview    *time.Time `json:"last_review,omitempty"`
	Due           *time.Time `json:"due,omitempty"`
}

// RecordOf returns the fully populated record form of s.
func RecordOf(s SchedulingState) SchedulingRecord {
	return SchedulingRecord{
		Stability:     &s.Stability,
		Difficulty:    &s.Difficulty,
		ElapsedDays:   &s.ElapsedDays,
		ScheduledDays: &s.ScheduledDays,
		LearningSteps: &s.LearningSteps,
		Reps:          &s.Reps,
		Lapses:        &s.Lapses,
		State:         &s.State,
		LastReview:    &s.LastReview,
		Due:           &s.Due,
	}
}

// Hydrate fills missing fields with defaults and clamps values that violate
// the SchedulingState invariants. fallback is used for missing timestamps.
func (r SchedulingRecord) Hydrate(fallback time.Time) SchedulingState {
	s := NewSchedulingState(fallback)

	if r.Stability != nil {
		s.Stability = nonNegative(*r.Stability)
	}
	if r.Difficulty != nil {
		s.Difficulty = ClampDifficulty(*r.Difficulty)
	}
	if r.ElapsedDays != nil {
		s.ElapsedDays = nonNegative(*r.ElapsedDays)
	}
	if r.ScheduledDays != nil {
		s.ScheduledDays = nonNegative(*r.ScheduledDays)
	}
	if r.LearningSteps != nil {
		s.LearningSteps = max(*r.LearningSteps, 0)
	}
	if r.Reps != nil {
		s.Reps = max(*r.Reps, 0)
	}
	if r.Lapses != nil {
		s.Lapses = max(*r.Lapses, 0)
	}
	if r.State != nil && r.State.IsValid() {
		s.State = *r.State
	}
	if r.LastReview != nil && !r.LastReview.IsZero() {
		s.LastReview = *r.LastReview
	}
	if r.Due != nil && !r.Due.IsZero() {
		s.Due = *r.Due
	} else {
		s.Due = s.LastReview
	}
	if s.Due.Before(s.LastReview) {
		s.Due = s.LastReview
	}
	if s.State == StateReview || s.State == StateNew {
		s.LearningSteps = 0
	}
	return s
}

// Sanitize re-applies Hydrate to an already typed state, discarding values
// that could have been produced by an older schema version.
func Sanitize(s SchedulingState) SchedulingState {
	return RecordOf(s).Hydrate(s.LastReview)
}

// ClampDifficulty bounds d to [MinDifficulty, MaxDifficulty]. NaN maps to the default.
func ClampDifficulty(d float64) float64 {
	if math.IsNaN(d) {
		return DefaultDifficulty
	}
	return math.Min(math.Max(d, MinDifficulty), MaxDifficulty)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
