package services

import "time"

func SetReviewClock(s ReviewService, now func() time.Time) {
	s.(*reviewService).now = now
}
