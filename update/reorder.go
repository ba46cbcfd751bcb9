package update

import (
	"fmt"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/pool"
)

// reorderEntry is a job that finished before reaching the archive head.
type reorderEntry struct {
	result compress.Result
	chain  *pool.Chain
}

// reorderBuffer keeps finished jobs keyed by item index until their turn.
type reorderBuffer struct {
	entries map[int]reorderEntry
}

func newReorderBuffer() *reorderBuffer {
	return &reorderBuffer{entries: make(map[int]reorderEntry)}
}

// put stores the buffered completion c. Only unpromoted jobs can finish
// ahead of the head, so c must carry a Buffered output.
func (b *reorderBuffer) put(c completion) error {
	out, ok := c.output.(Buffered)
	if !ok {
		return fmt.Errorf("%w: item %d finished direct before its turn", errs.ErrWriterState, c.index)
	}
	b.entries[c.index] = reorderEntry{result: c.result, chain: out.Chain}

	return nil
}

// take removes and returns the entry of item index.
func (b *reorderBuffer) take(index int) (reorderEntry, bool) {
	e, ok := b.entries[index]
	if ok {
		delete(b.entries, index)
	}

	return e, ok
}

func (b *reorderBuffer) len() int {
	return len(b.entries)
}

// releaseAll returns the blocks of every stored entry.
func (b *reorderBuffer) releaseAll() {
	for i, e := range b.entries {
		e.chain.Release()
		delete(b.entries, i)
	}
}
