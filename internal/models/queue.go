package models

import "time"

// ReviewQueueEntry is one pending grade submission together with the
// post-grade state needed to replay it remotely without recomputation.
type ReviewQueueEntry struct {
	CardID   string          `json:"card_id"`
	Grade    Grade           `json:"grade"`
	GradedAt time.Time       `json:"graded_at"`
	State    SchedulingState `json:"state"`

	// Revision changes on every enqueue; commit only removes an entry whose
	// revision still matches the drained snapshot.
	Revision   string    `json:"revision"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
}

// QueueEntryRecord is the durable form of a ReviewQueueEntry. Fields added
// by newer versions are ignored on decode; fields missing from older versions
// are defaulted by Hydrate.
type QueueEntryRecord struct {
	CardID     string           `json:"card_id"`
	Grade      *Grade           `json:"grade,omitempty"`
	GradedAt   *time.Time       `json:"graded_at,omitempty"`
	State      SchedulingRecord `json:"state"`
	Revision   string           `json:"revision,omitempty"`
	EnqueuedAt *time.Time       `json:"enqueued_at,omitempty"`
	Attempts   int              `json:"attempts,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
}

func RecordOfEntry(e ReviewQueueEntry) QueueEntryRecord {
	return QueueEntryRecord{
		CardID:     e.CardID,
		Grade:      &e.Grade,
		GradedAt:   &e.GradedAt,
		State:      RecordOf(e.State),
		Revision:   e.Revision,
		EnqueuedAt: &e.EnqueuedAt,
		Attempts:   e.Attempts,
		LastError:  e.LastError,
	}
}

// Hydrate returns the entry, or false when the record cannot be replayed
// (no card id or no usable grade).
func (r QueueEntryRecord) Hydrate() (ReviewQueueEntry, bool) {
	if r.CardID == "" || r.Grade == nil || !r.Grade.IsValid() {
		return ReviewQueueEntry{}, false
	}
	var gradedAt time.Time
	switch {
	case r.GradedAt != nil:
		gradedAt = *r.GradedAt
	case r.State.LastReview != nil:
		gradedAt = *r.State.LastReview
	}
	e := ReviewQueueEntry{
		CardID:    r.CardID,
		Grade:     *r.Grade,
		GradedAt:  gradedAt,
		State:     r.State.Hydrate(gradedAt),
		Revision:  r.Revision,
		Attempts:  max(r.Attempts, 0),
		LastError: r.LastError,
	}
	if r.EnqueuedAt != nil {
		e.EnqueuedAt = *r.EnqueuedAt
	}
	return e, true
}
