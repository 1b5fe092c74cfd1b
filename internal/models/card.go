package models

import "time"

// Card is the remote scheduling document for one flashcard. Card content
// lives elsewhere; only the scheduling fields and a review counter are kept.
type Card struct {
	ID          string          `json:"id"`
	Scheduling  SchedulingState `json:"scheduling"`
	ReviewCount int             `json:"review_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DueCard is one element of the ordered sequence a study session walks through.
type DueCard struct {
	ID         string          `json:"id"`
	Scheduling SchedulingState `json:"scheduling"`
}

type DueCardsPage struct {
	Cards  []DueCard `json:"cards"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Total  int       `json:"total"`
}

type ReviewHistory struct {
	ID          int64     `json:"id"`
	CardID      string    `json:"card_id"`
	Grade       Grade     `json:"grade"`
	TimeSeconds float64   `json:"time_seconds"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

type CardStats struct {
	TotalCards    int            `json:"total_cards"`
	CardsDue      int            `json:"cards_due"`
	TotalReviews  int            `json:"total_reviews"`
	AvgStability  float64        `json:"avg_stability"`
	AvgDifficulty float64        `json:"avg_difficulty"`
	ByState       map[string]int `json:"by_state"`

	ParametersVersion string `json:"parameters_version,omitempty"`
}
