// Package queue provides trial condition queues for operant experiments.
//
// A queue decides which condition the next trial presents. Three strategies
// are provided:
//   - Random: weighted random sampling with an item cap
//   - Block: every item repeated a fixed number of times, optionally shuffled
//   - Staircase: an adaptive procedure that tracks trial accuracy
//
// Queues are consumed by blocks (operant.Block) which turn each yielded item
// into a trial.
package queue

// Queue yields items one at a time until exhausted.
//
// Next returns the next item and true, or the zero value and false once the
// queue is exhausted. Queues are not safe for concurrent use; a block owns
// its queue exclusively.
//
// Type parameter T is the item type, typically *stimulus.Condition.
type Queue[T any] interface {
	// Next returns the next queued item. The second return value is false
	// when the queue has no more items.
	Next() (T, bool)
}

// Reporter is implemented by adaptive queues that need to know the outcome
// of the previous trial before yielding the next item.
//
// The trial runner checks for this interface after scoring each trial and
// calls Report with the trial's correctness.
type Reporter interface {
	Report(correct bool)
}
