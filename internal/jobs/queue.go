package jobs

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	// EnqueueFlush asks for a flush of the review queue. It reports false
	// when a flush is already waiting to run, which covers this request.
	EnqueueFlush(reason string) bool
}
