package models

import "time"

// MaxBatchSize is the largest number of items the remote store accepts in
// one batch update.
const MaxBatchSize = 1000

// BatchUpdateItem is the wire form of one queued review sent to the
// remote store.
type BatchUpdateItem struct {
	CardID   string    `json:"card_id"`
	Grade    Grade     `json:"grade"`
	GradedAt time.Time `json:"graded_at"`
	SchedulingState
}

type BatchUpdateRequest struct {
	Items []BatchUpdateItem `json:"items"`
}

// BatchUpdateResult reports which documents were modified. Ids that do not
// exist in the store are listed in MissingIDs and are not an error.
type BatchUpdateResult struct {
	Modified   int      `json:"modified"`
	UpdatedIDs []string `json:"updated_ids"`
	MissingIDs []string `json:"missing_ids"`
}

// ItemFromEntry normalizes a queue entry into its wire form.
func ItemFromEntry(e ReviewQueueEntry) BatchUpdateItem {
	return BatchUpdateItem{
		CardID:          e.CardID,
		Grade:           e.Grade,
		GradedAt:        e.GradedAt,
		SchedulingState: Sanitize(e.State),
	}
}
