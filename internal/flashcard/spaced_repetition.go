package flashcard

import (
	"math"
	"time"

	"github.com/vytor/reviewsync/internal/models"
)

const day = 24 * time.Hour

// Scheduler computes the next SchedulingState of a card from a grade. It
// holds no mutable state and never reads the clock.
type Scheduler struct {
	algo   algo
	params Parameters
}

func NewScheduler(p Parameters) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{algo: newAlgo(p.Weights), params: p}, nil
}

// NewDefaultScheduler uses the embedded default parameter set.
func NewDefaultScheduler() *Scheduler {
	s, err := NewScheduler(DefaultParameters())
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Scheduler) Parameters() Parameters {
	return s.params
}

// Schedule returns the state that results from grading a card at now. A nil
// state is a card that has never been graded. The input is not modified.
// grade must be valid; callers reject other values before calling.
func (s *Scheduler) Schedule(prev *models.SchedulingState, grade models.Grade, now time.Time) models.SchedulingState {
	var cur models.SchedulingState
	if prev == nil {
		cur = models.NewSchedulingState(now)
	} else {
		cur = models.Sanitize(*prev)
	}

	next := cur
	elapsed := 0.0
	if cur.State != models.StateNew {
		elapsed = math.Max(0, now.Sub(cur.LastReview).Hours()/24)
	}
	next.ElapsedDays = elapsed

	var interval time.Duration
	switch cur.State {
	case models.StateNew:
		interval = s.scheduleNew(&next, grade, now)
	case models.StateLearning:
		s.updateMemory(&next, grade, elapsed)
		interval = s.ladder(&next, grade, s.params.LearningSteps, now)
	case models.StateRelearning:
		s.updateMemory(&next, grade, elapsed)
		interval = s.ladder(&next, grade, s.params.RelearningSteps, now)
	default:
		s.updateMemory(&next, grade, elapsed)
		interval = s.scheduleReview(&next, grade, now)
	}

	next.ScheduledDays = interval.Hours() / 24
	next.LastReview = now
	next.Due = now.Add(interval)
	next.Reps = cur.Reps + 1
	return next
}

// Preview returns the outcome of every grade without committing to any.
func (s *Scheduler) Preview(prev *models.SchedulingState, now time.Time) map[models.Grade]models.SchedulingState {
	out := make(map[models.Grade]models.SchedulingState, len(models.Grades))
	for _, g := range models.Grades {
		out[g] = s.Schedule(prev, g, now)
	}
	return out
}

// Retrievability is the estimated probability of recall at now.
func (s *Scheduler) Retrievability(state models.SchedulingState, now time.Time) float64 {
	if state.State == models.StateNew || state.Stability <= 0 {
		return 0
	}
	elapsed := math.Max(0, now.Sub(state.LastReview).Hours()/24)
	return s.algo.retrievability(elapsed, state.Stability)
}

func (s *Scheduler) scheduleNew(c *models.SchedulingState, grade models.Grade, now time.Time) time.Duration {
	c.Stability = s.algo.initStability(grade)
	c.Difficulty = fromModelDifficulty(s.algo.initDifficulty(grade, true))
	c.LearningSteps = 0

	if grade == models.GradeEasy {
		return s.graduate(c, now)
	}
	c.State = models.StateLearning
	return s.ladder(c, grade, s.params.LearningSteps, now)
}

func (s *Scheduler) updateMemory(c *models.SchedulingState, grade models.Grade, elapsed float64) {
	stability := math.Max(c.Stability, minStability)
	difficulty := toModelDifficulty(c.Difficulty)

	if elapsed < 1 {
		c.Stability = s.algo.shortTermStability(stability, grade)
	} else {
		r := s.algo.retrievability(elapsed, stability)
		c.Stability = s.algo.nextStability(difficulty, stability, r, grade)
	}
	c.Difficulty = fromModelDifficulty(s.algo.nextDifficulty(difficulty, grade))
}

// ladder walks the short-term learning or relearning steps, graduating to
// Review after the last one.
func (s *Scheduler) ladder(c *models.SchedulingState, grade models.Grade, steps []time.Duration, now time.Time) time.Duration {
	step := c.LearningSteps
	if len(steps) == 0 || (step >= len(steps) && grade != models.GradeAgain) {
		return s.graduate(c, now)
	}

	switch grade {
	case models.GradeAgain:
		c.LearningSteps = 0
		return steps[0]
	case models.GradeHard:
		if step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if step == 0 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[step]
	case models.GradeGood:
		if step+1 >= len(steps) {
			return s.graduate(c, now)
		}
		c.LearningSteps = step + 1
		return steps[step+1]
	default:
		return s.graduate(c, now)
	}
}

func (s *Scheduler) scheduleReview(c *models.SchedulingState, grade models.Grade, now time.Time) time.Duration {
	if grade == models.GradeAgain {
		c.Lapses++
		if len(s.params.RelearningSteps) > 0 {
			c.State = models.StateRelearning
			c.LearningSteps = 0
			return s.params.RelearningSteps[0]
		}
	}
	c.LearningSteps = 0
	return s.reviewInterval(c, now)
}

func (s *Scheduler) graduate(c *models.SchedulingState, now time.Time) time.Duration {
	c.State = models.StateReview
	c.LearningSteps = 0
	return s.reviewInterval(c, now)
}

// reviewInterval converts stability to whole days, fuzzed and clamped to
// the configured bounds.
func (s *Scheduler) reviewInterval(c *models.SchedulingState, now time.Time) time.Duration {
	ivl := math.Round(s.algo.nextInterval(c.Stability, s.params.DesiredRetention))
	ivl = math.Min(math.Max(ivl, float64(s.params.MinimumInterval)), float64(s.params.MaximumInterval))
	days := int(ivl)

	if s.params.EnableFuzz {
		seed := fuzzSeed(now, c.Reps, c.Difficulty, c.Stability)
		days = applyFuzz(days, s.params.MaximumInterval, seed)
		days = min(max(days, s.params.MinimumInterval), s.params.MaximumInterval)
	}
	return time.Duration(days) * day
}
