package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// State is the coarse lifecycle phase of a card.
type State int

const (
	StateNew State = iota
	StateLearning
	StateReview
	StateRelearning
)

var stateNames = [...]string{
	StateNew:        "New",
	StateLearning:   "Learning",
	StateReview:     "Review",
	StateRelearning: "Relearning",
}

func (s State) IsValid() bool {
	return s >= StateNew && s <= StateRelearning
}

func (s State) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState accepts the state name case-insensitively.
func ParseState(v string) (State, error) {
	for i, name := range stateNames {
		if strings.EqualFold(name, v) {
			return State(i), nil
		}
	}
	return StateNew, fmt.Errorf("invalid state: %q", v)
}

func (s State) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid state: %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("invalid state: %s", data)
	}
	v, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Grade is the four-point recall quality rating.
type Grade int

const (
	GradeAgain Grade = iota + 1
	GradeHard
	GradeGood
	GradeEasy
)

var gradeNames = [...]string{
	GradeAgain: "Again",
	GradeHard:  "Hard",
	GradeGood:  "Good",
	GradeEasy:  "Easy",
}

// Grades lists every grade in ascending order.
var Grades = []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy}

func (g Grade) IsValid() bool {
	return g >= GradeAgain && g <= GradeEasy
}

func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// ParseGrade accepts the canonical grade name case-insensitively.
func ParseGrade(v string) (Grade, error) {
	for _, g := range Grades {
		if strings.EqualFold(gradeNames[g], v) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("invalid grade: %q", v)
}

func (g Grade) MarshalJSON() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("invalid grade: %d", int(g))
	}
	return json.Marshal(g.String())
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("invalid grade: %s", data)
	}
	v, err := ParseGrade(name)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Difficulty bounds on the normalized scale.
const (
	MinDifficulty     = 0.0
	MaxDifficulty     = 1.0
	DefaultDifficulty = 0.3
)

// SchedulingState is the per-card scheduling record. It is only ever
// replaced as a whole with the output of the scheduler.
type SchedulingState struct {
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	ElapsedDays   float64   `json:"elapsed_days"`
	ScheduledDays float64   `json:"scheduled_days"`
	LearningSteps int       `json:"learning_steps"`
	Reps          int       `json:"reps"`
	Lapses        int       `json:"lapses"`
	State         State     `json:"state"`
	LastReview    time.Time `json:"last_review"`
	Due           time.Time `json:"due"`
}

// Equal reports whether both states hold the same values and the same
// instants, whatever the location or monotonic reading of their times.
func (s SchedulingState) Equal(o SchedulingState) bool {
	return s.Stability == o.Stability &&
		s.Difficulty == o.Difficulty &&
		s.ElapsedDays == o.ElapsedDays &&
		s.ScheduledDays == o.ScheduledDays &&
		s.LearningSteps == o.LearningSteps &&
		s.Reps == o.Reps &&
		s.Lapses == o.Lapses &&
		s.State == o.State &&
		s.LastReview.Equal(o.LastReview) &&
		s.Due.Equal(o.Due)
}

// NewSchedulingState returns the zeroed state of a card that has never been graded.
func NewSchedulingState(now time.Time) SchedulingState {
	return SchedulingState{
		Difficulty: DefaultDifficulty,
		State:      StateNew,
		LastReview: now,
		Due:        now,
	}
}

// IsDue reports whether the card should be shown at now.
func (s SchedulingState) IsDue(now time.Time) bool {
	return !s.Due.After(now)
}
