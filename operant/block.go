package operant

import (
	"github.com/opyrant/opyrant/operant/queue"
	"github.com/opyrant/opyrant/operant/stimulus"
)

// Block is one block of trials: a queue of conditions plus the
// reinforcement schedule in force while the block runs.
type Block struct {
	Name          string
	Queue         queue.Queue[*stimulus.Condition]
	Reinforcement Reinforcement
}

// NewBlock returns a block. A nil reinforcement defaults to continuous.
func NewBlock(name string, q queue.Queue[*stimulus.Condition], r Reinforcement) *Block {
	if r == nil {
		r = Continuous{}
	}
	return &Block{Name: name, Queue: q, Reinforcement: r}
}

// Next draws the next condition, reporting false when the block is
// exhausted.
func (b *Block) Next() (*stimulus.Condition, bool) {
	return b.Queue.Next()
}

// Report feeds the trial outcome back to adaptive queues. Queues that do
// not adapt ignore it.
func (b *Block) Report(correct bool) {
	if reporter, ok := b.Queue.(queue.Reporter); ok {
		reporter.Report(correct)
	}
}

// BlockHandler steps through a sequence of blocks. When the current
// block's queue runs dry the handler advances to the next; the session
// ends when the last block is exhausted.
type BlockHandler struct {
	blocks []*Block
	index  int
}

// NewBlockHandler returns a handler over the given blocks in order.
func NewBlockHandler(blocks ...*Block) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// Current returns the active block, or nil when all are exhausted.
func (h *BlockHandler) Current() *Block {
	if h.index >= len(h.blocks) {
		return nil
	}
	return h.blocks[h.index]
}

// Next draws a condition from the active block, advancing across block
// boundaries as queues empty. It returns the block the condition came
// from.
func (h *BlockHandler) Next() (*stimulus.Condition, *Block, bool) {
	for h.index < len(h.blocks) {
		block := h.blocks[h.index]
		if condition, ok := block.Next(); ok {
			return condition, block, true
		}
		h.index++
	}
	return nil, nil, false
}

// Remaining reports how many blocks are not yet exhausted, counting the
// active one.
func (h *BlockHandler) Remaining() int {
	return len(h.blocks) - h.index
}
