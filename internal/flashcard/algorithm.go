package flashcard

import (
	"math"

	"github.com/vytor/reviewsync/internal/models"
)

const (
	minStability = 0.001

	// Memory-model difficulty runs on [1, 10]; SchedulingState exposes it
	// normalized to [MinDifficulty, MaxDifficulty].
	minModelDifficulty = 1.0
	maxModelDifficulty = 10.0
)

// algo holds the weights and the constants derived from them.
type algo struct {
	w      [21]float64
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

func newAlgo(w [21]float64) algo {
	decay := -w[20]
	return algo{
		w:      w,
		decay:  decay,
		factor: math.Pow(0.9, 1.0/decay) - 1.0,
	}
}

// retrievability is R(t, S) = (1 + factor*t/S)^decay.
func (a *algo) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+a.factor*elapsedDays/clampS(stability), a.decay)
}

func (a *algo) initStability(g models.Grade) float64 {
	return clampS(a.w[g-1])
}

// initDifficulty is D0(G) = w4 - e^(w5*(G-1)) + 1.
func (a *algo) initDifficulty(g models.Grade, clamp bool) float64 {
	d := a.w[4] - math.Exp(a.w[5]*float64(g-1)) + 1
	if clamp {
		return clampD(d)
	}
	return d
}

// nextInterval solves R(t, S) = retention for t, in whole days.
func (a *algo) nextInterval(stability, retention float64) float64 {
	return stability / a.factor * (math.Pow(retention, 1.0/a.decay) - 1)
}

// shortTermStability applies to reviews less than a day apart.
func (a *algo) shortTermStability(stability float64, g models.Grade) float64 {
	inc := math.Exp(a.w[17]*(float64(g)-3+a.w[18])) * math.Pow(stability, -a.w[19])
	if g == models.GradeGood || g == models.GradeEasy {
		inc = math.Max(inc, 1.0)
	}
	return clampS(stability * inc)
}

// nextDifficulty applies linear damping then mean reversion towards D0(Easy).
func (a *algo) nextDifficulty(d float64, g models.Grade) float64 {
	delta := -a.w[6] * (float64(g) - 3)
	damped := d + (10-d)*delta/9
	return clampD(a.w[7]*a.initDifficulty(models.GradeEasy, false) + (1-a.w[7])*damped)
}

func (a *algo) nextStability(d, s, r float64, g models.Grade) float64 {
	if g == models.GradeAgain {
		return clampS(a.forgetStability(d, s, r))
	}
	return clampS(a.recallStability(d, s, r, g))
}

func (a *algo) recallStability(d, s, r float64, g models.Grade) float64 {
	hardPenalty := 1.0
	if g == models.GradeHard {
		hardPenalty = a.w[15]
	}
	easyBonus := 1.0
	if g == models.GradeEasy {
		easyBonus = a.w[16]
	}
	return s * (1 + math.Exp(a.w[8])*
		(11-d)*
		math.Pow(s, -a.w[9])*
		(math.Exp((1-r)*a.w[10])-1)*
		hardPenalty*easyBonus)
}

// forgetStability never exceeds the pre-lapse stability.
func (a *algo) forgetStability(d, s, r float64) float64 {
	long := a.w[11] *
		math.Pow(d, -a.w[12]) *
		(math.Pow(s+1, a.w[13]) - 1) *
		math.Exp((1-r)*a.w[14])
	short := s / math.Exp(a.w[17]*a.w[18])
	return math.Min(long, short)
}

func clampS(s float64) float64 {
	return math.Max(s, minStability)
}

func clampD(d float64) float64 {
	return math.Min(math.Max(d, minModelDifficulty), maxModelDifficulty)
}

func toModelDifficulty(d float64) float64 {
	return minModelDifficulty + models.ClampDifficulty(d)*(maxModelDifficulty-minModelDifficulty)
}

func fromModelDifficulty(d float64) float64 {
	return models.ClampDifficulty((clampD(d) - minModelDifficulty) / (maxModelDifficulty - minModelDifficulty))
}
