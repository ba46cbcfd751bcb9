package pool

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/arloliu/mezip/errs"
)

const (
	// DefaultBlockSize is the block size used when none is configured.
	DefaultBlockSize = 1 << 20 // 1MiB

	// DefaultMaxReservation caps the arena reserved by NewBlockPool.
	DefaultMaxReservation int64 = 1 << 34 // 16GiB
)

// BlockPool is a fixed set of equally sized memory blocks carved from one arena.
//
// The arena is reserved once in NewBlockPool and never grows. Blocks circulate
// through a buffered channel, so Available can take part in a select together
// with other wake-up conditions of the caller.
type BlockPool struct {
	blockSize int
	capacity  int
	free      chan []byte

	live atomic.Int64
	peak atomic.Int64
}

// NewBlockPool reserves threads × perThread bytes as blocks of blockSize bytes.
//
// Parameters:
//   - threads: Number of workers sharing the pool
//   - perThread: Memory budget per worker in bytes
//   - blockSize: Size of one block in bytes
//   - maxReservation: Upper bound of the arena, <= 0 selects DefaultMaxReservation
//
// Returns:
//   - *BlockPool: Pool holding threads × perThread / blockSize blocks
//   - error: ErrInvalidConfig for non-positive inputs, ErrPoolExhausted when the
//     arena exceeds maxReservation or overflows
func NewBlockPool(threads int, perThread int64, blockSize int, maxReservation int64) (*BlockPool, error) {
	if threads < 1 || perThread < 1 || blockSize < 1 {
		return nil, fmt.Errorf("%w: block pool threads=%d perThread=%d blockSize=%d",
			errs.ErrInvalidConfig, threads, perThread, blockSize)
	}
	if maxReservation <= 0 {
		maxReservation = DefaultMaxReservation
	}

	if perThread > math.MaxInt64/int64(threads) {
		return nil, fmt.Errorf("%w: %d threads × %d bytes overflows", errs.ErrPoolExhausted, threads, perThread)
	}

	total := int64(threads) * perThread
	if total > maxReservation {
		return nil, fmt.Errorf("%w: reservation of %d bytes exceeds limit %d", errs.ErrPoolExhausted, total, maxReservation)
	}

	count := int(total / int64(blockSize))
	p := &BlockPool{
		blockSize: blockSize,
		capacity:  count,
		free:      make(chan []byte, count),
	}

	arena := make([]byte, count*blockSize)
	for i := range count {
		start := i * blockSize
		p.free <- arena[start : start+blockSize : start+blockSize]
	}

	return p, nil
}

// BlockSize returns the size of one block.
func (p *BlockPool) BlockSize() int {
	return p.blockSize
}

// Capacity returns the number of blocks reserved at start.
func (p *BlockPool) Capacity() int {
	return p.capacity
}

// Live returns the number of blocks currently held by chains.
func (p *BlockPool) Live() int {
	return int(p.live.Load())
}

// Peak returns the highest Live value observed since the pool was created.
func (p *BlockPool) Peak() int {
	return int(p.peak.Load())
}

// Available returns the channel free blocks are received from.
//
// A block received from it must be handed to Chain.Adopt so it is accounted
// for and eventually released.
func (p *BlockPool) Available() <-chan []byte {
	return p.free
}

// TryAcquire returns a free block without blocking.
func (p *BlockPool) TryAcquire() ([]byte, bool) {
	select {
	case b := <-p.free:
		p.acquired()
		return b, true
	default:
		return nil, false
	}
}

// NewChain returns an empty chain drawing blocks from p.
func (p *BlockPool) NewChain() *Chain {
	return &Chain{pool: p}
}

func (p *BlockPool) acquired() {
	live := p.live.Add(1)
	for {
		peak := p.peak.Load()
		if live <= peak || p.peak.CompareAndSwap(peak, live) {
			return
		}
	}
}

func (p *BlockPool) release(b []byte) {
	p.live.Add(-1)
	p.free <- b[:p.blockSize]
}

// Chain is an ordered list of blocks holding one item's buffered output.
//
// A chain is owned by a single goroutine at a time. It is filled by the
// worker, handed over with the completion and replayed by the coordinator.
type Chain struct {
	pool   *BlockPool
	blocks [][]byte
	used   int // bytes used in the last block
	size   int64
}

// Len returns the number of buffered bytes.
func (c *Chain) Len() int64 {
	return c.size
}

// Blocks returns the number of blocks held by the chain.
func (c *Chain) Blocks() int {
	return len(c.blocks)
}

// Fill copies as much of data as fits into the spare room of the last block.
func (c *Chain) Fill(data []byte) int {
	if len(c.blocks) == 0 {
		return 0
	}

	last := c.blocks[len(c.blocks)-1]
	n := copy(last[c.used:], data)
	c.used += n
	c.size += int64(n)

	return n
}

// Full reports whether a new block is needed before more data can be filled.
func (c *Chain) Full() bool {
	return len(c.blocks) == 0 || c.used == c.pool.blockSize
}

// Adopt appends a block received from BlockPool.Available.
func (c *Chain) Adopt(b []byte) {
	c.pool.acquired()
	c.append(b)
}

// TryGrow appends a free block without blocking and reports whether it succeeded.
func (c *Chain) TryGrow() bool {
	b, ok := c.pool.TryAcquire()
	if !ok {
		return false
	}
	c.append(b)

	return true
}

func (c *Chain) append(b []byte) {
	c.blocks = append(c.blocks, b)
	c.used = 0
}

// Write buffers data, taking new blocks without blocking.
//
// It returns ErrPoolExhausted together with the number of bytes buffered when
// no free block is left.
func (c *Chain) Write(data []byte) (int, error) {
	written := 0
	for len(data) > 0 {
		if c.Full() && !c.TryGrow() {
			return written, errs.ErrPoolExhausted
		}
		n := c.Fill(data)
		written += n
		data = data[n:]
	}

	return written, nil
}

// WriteTo replays the buffered bytes into w in order.
func (c *Chain) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, b := range c.blocks {
		if i == len(c.blocks)-1 {
			b = b[:c.used]
		}
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// Release returns every block to the pool and empties the chain.
func (c *Chain) Release() {
	for _, b := range c.blocks {
		c.pool.release(b)
	}
	c.blocks = nil
	c.used = 0
	c.size = 0
}
