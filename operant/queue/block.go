package queue

import "math/rand"

// Block yields every item a fixed number of times, optionally shuffled.
//
// With shuffle disabled the queue presents items in order, cycling through
// the full item list once per repetition. With shuffle enabled the expanded
// list is permuted once at construction, so the trial sequence is fixed for
// the lifetime of the queue.
type Block[T any] struct {
	items []T
	pos   int
}

// BlockOption configures a Block queue.
type BlockOption func(*blockConfig)

type blockConfig struct {
	repetitions int
	shuffle     bool
	rng         *rand.Rand
}

// WithRepetitions sets how many times each item is presented. Defaults to 1.
func WithRepetitions(n int) BlockOption {
	return func(c *blockConfig) { c.repetitions = n }
}

// WithShuffle randomizes the presentation order.
func WithShuffle() BlockOption {
	return func(c *blockConfig) { c.shuffle = true }
}

// WithShuffleRand randomizes the order using the given source, which makes
// the permutation reproducible.
func WithShuffleRand(rng *rand.Rand) BlockOption {
	return func(c *blockConfig) {
		c.shuffle = true
		c.rng = rng
	}
}

// NewBlock creates a block queue over items.
func NewBlock[T any](items []T, opts ...BlockOption) *Block[T] {
	cfg := blockConfig{repetitions: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	expanded := make([]T, 0, len(items)*cfg.repetitions)
	for r := 0; r < cfg.repetitions; r++ {
		expanded = append(expanded, items...)
	}

	if cfg.shuffle {
		swap := func(i, j int) { expanded[i], expanded[j] = expanded[j], expanded[i] }
		if cfg.rng != nil {
			cfg.rng.Shuffle(len(expanded), swap)
		} else {
			rand.Shuffle(len(expanded), swap)
		}
	}

	return &Block[T]{items: expanded}
}

// Next returns the next item in the block, or false when every repetition
// has been presented.
func (q *Block[T]) Next() (T, bool) {
	var zero T
	if q.pos >= len(q.items) {
		return zero, false
	}
	item := q.items[q.pos]
	q.pos++
	return item, true
}

// Remaining reports how many items have not yet been presented.
func (q *Block[T]) Remaining() int {
	return len(q.items) - q.pos
}
