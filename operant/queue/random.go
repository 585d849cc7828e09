package queue

import "math/rand"

// Random samples items at random, optionally weighted, until a maximum
// number of items has been yielded.
//
// Weights do not need to sum to 1; they are normalized internally. With no
// weights every item is equally likely.
//
// Example:
//
//	q := queue.NewRandom([]string{"go", "nogo"},
//	    queue.WithWeights([]float64{3, 1}),
//	    queue.WithMaxItems(200),
//	)
//	for cond, ok := q.Next(); ok; cond, ok = q.Next() {
//	    // run trial with cond
//	}
type Random[T any] struct {
	items    []T
	cum      []float64 // cumulative normalized weights
	maxItems int
	yielded  int
	rng      *rand.Rand
}

// RandomOption configures a Random queue.
type RandomOption func(*randomConfig)

type randomConfig struct {
	weights  []float64
	maxItems int
	rng      *rand.Rand
}

// WithWeights sets per-item sampling weights. The slice must be the same
// length as the item slice; extra or missing weights are ignored and the
// queue falls back to uniform sampling.
func WithWeights(weights []float64) RandomOption {
	return func(c *randomConfig) { c.weights = weights }
}

// WithMaxItems caps the number of items the queue yields. The default is
// 100, matching the historical behavior of open-ended random sessions.
func WithMaxItems(n int) RandomOption {
	return func(c *randomConfig) { c.maxItems = n }
}

// WithRand sets the random source, which makes sampling reproducible.
func WithRand(rng *rand.Rand) RandomOption {
	return func(c *randomConfig) { c.rng = rng }
}

// NewRandom creates a weighted random queue over items.
//
// An empty item slice produces an immediately-exhausted queue rather than an
// error, so callers can chain construction without checking.
func NewRandom[T any](items []T, opts ...RandomOption) *Random[T] {
	cfg := randomConfig{maxItems: 100}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &Random[T]{
		items:    items,
		maxItems: cfg.maxItems,
		rng:      cfg.rng,
	}

	if len(cfg.weights) == len(items) && len(items) > 0 {
		total := 0.0
		for _, w := range cfg.weights {
			total += w
		}
		if total > 0 {
			q.cum = make([]float64, len(items))
			acc := 0.0
			for i, w := range cfg.weights {
				acc += w / total
				q.cum[i] = acc
			}
		}
	}

	return q
}

// Next returns a randomly sampled item, or false once maxItems have been
// yielded or the queue is empty.
func (q *Random[T]) Next() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	if q.maxItems > 0 && q.yielded >= q.maxItems {
		return zero, false
	}
	q.yielded++

	return q.items[q.pick()], true
}

func (q *Random[T]) pick() int {
	r := q.float64()
	if q.cum == nil {
		i := int(r * float64(len(q.items)))
		if i >= len(q.items) {
			i = len(q.items) - 1
		}
		return i
	}
	for i, c := range q.cum {
		if r < c {
			return i
		}
	}
	return len(q.items) - 1
}

func (q *Random[T]) float64() float64 {
	if q.rng != nil {
		return q.rng.Float64()
	}
	return rand.Float64()
}
